// Package plan provides the concrete execution plans produced by handlers.
//
// FuncPlan wraps a Go function over an input map. CallPlan renders a prompt
// conversation and hands it to a ports.Completer. Both carry guards: before
// the real execution they replay themselves once per guard, with the guard
// input substituted and no guards attached, and fail fast with a
// *domain.GuardViolationError on the first mismatch.
package plan

import (
	"context"
	"fmt"

	"github.com/aretw0/semop/pkg/domain"
)

// Forkable plans can be replayed against another input.
type Forkable interface {
	domain.Plan
	// Fork returns a fresh plan with input substituted and no guards.
	Fork(input map[string]any) domain.Plan
}

// Guardable plans accept guards folded in by backends.
type Guardable interface {
	AddGuards(guards ...domain.Guard)
	Guards() []domain.Guard
}

// Validate replays p once per guard and checks each output. The first
// mismatch is returned as a *domain.GuardViolationError.
func Validate(ctx context.Context, p Forkable, guards []domain.Guard) error {
	for _, g := range guards {
		if err := g.Validate(); err != nil {
			return err
		}
		output, err := p.Fork(g.Input).Execute(ctx)
		if err != nil {
			return fmt.Errorf("guard %s: %w", g.Label(), err)
		}
		if !g.Check(output) {
			return &domain.GuardViolationError{Guard: g, Output: output, Signs: p.Signs()}
		}
	}
	return nil
}

func copyInput(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = v
	}
	return out
}
