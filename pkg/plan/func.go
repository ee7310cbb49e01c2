package plan

import (
	"context"
	"sync"

	"github.com/aretw0/semop/pkg/domain"
)

// Func computes a result from a plan input.
type Func func(ctx context.Context, input map[string]any) (any, error)

// FuncPlan defers a Func over a fixed input.
type FuncPlan struct {
	domain.AuditTrail

	mu     sync.Mutex
	input  map[string]any
	fn     Func
	guards []domain.Guard
}

// NewFunc creates a plan that calls fn with input on Execute.
func NewFunc(input map[string]any, fn Func) *FuncPlan {
	return &FuncPlan{input: copyInput(input), fn: fn}
}

// Const creates a plan that returns v.
func Const(v any) *FuncPlan {
	return NewFunc(nil, func(context.Context, map[string]any) (any, error) {
		return v, nil
	})
}

// Input returns a copy of the plan input.
func (p *FuncPlan) Input() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyInput(p.input)
}

// Fork returns an unguarded plan over input with the same function.
func (p *FuncPlan) Fork(input map[string]any) domain.Plan {
	return NewFunc(input, p.fn)
}

// AddGuards attaches guards checked before execution.
func (p *FuncPlan) AddGuards(guards ...domain.Guard) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guards = append(p.guards, guards...)
}

// Guards returns the attached guards.
func (p *FuncPlan) Guards() []domain.Guard {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Guard(nil), p.guards...)
}

// Execute validates the guards, then runs the function.
func (p *FuncPlan) Execute(ctx context.Context) (any, error) {
	if err := Validate(ctx, p, p.Guards()); err != nil {
		return nil, err
	}
	return p.fn(ctx, p.Input())
}
