package backends

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/plan"
	"github.com/aretw0/semop/pkg/ports"
)

// folder holds what the scope-folding backends share: a name and the
// handlers they must follow.
type folder struct {
	name string
	deps []string
}

func (f *folder) Name() string { return f.name }

func (f *folder) Dependencies() []string { return append([]string(nil), f.deps...) }

// FoldOption configures a scope-folding backend.
type FoldOption func(*folder)

// WithDependencies replaces the default dependency on CompletionBackend.
func WithDependencies(names ...string) FoldOption {
	return func(f *folder) {
		f.deps = append([]string(nil), names...)
	}
}

// WithName renames the backend, e.g. to register two differently wired copies.
func WithName(name string) FoldOption {
	return func(f *folder) {
		if name != "" {
			f.name = name
		}
	}
}

func newFolder(name string, opts []FoldOption) folder {
	f := folder{name: name, deps: []string{CompletionName}}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

var notCallPlan = domain.Decline("current plan is not a completion plan")

// Context adds free and role-scoped context texts to the instruction.
type Context struct{ folder }

// NewContext creates the context backend.
func NewContext(opts ...FoldOption) *Context {
	return &Context{newFolder(ContextName, opts)}
}

func (b *Context) Handle(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
	call, ok := current.(*plan.CallPlan)
	if !ok {
		return notCallPlan, nil
	}
	entries := d.Scopes().Texts()
	if len(entries) == 0 {
		return domain.Decline("no context in scope"), nil
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		if e.Kind == domain.KindRole {
			lines[i] = "- " + e.Role + ": " + e.Text
		} else {
			lines[i] = "- " + e.Text
		}
	}
	call.AppendInstruction("\n\n", "Please consider the following contexts before responding:\n\n"+strings.Join(lines, "\n"))
	return domain.Proceed(call, fmt.Sprintf("adding %d context", len(entries))), nil
}

// Exemplar appends the exemplars in scope to the few-shot turns.
type Exemplar struct{ folder }

// NewExemplar creates the exemplar backend.
func NewExemplar(opts ...FoldOption) *Exemplar {
	return &Exemplar{newFolder(ExemplarName, opts)}
}

func (b *Exemplar) Handle(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
	call, ok := current.(*plan.CallPlan)
	if !ok {
		return notCallPlan, nil
	}
	exemplars := d.Scopes().Exemplars()
	if len(exemplars) == 0 {
		return domain.Decline("no exemplars in scope"), nil
	}
	call.AddExemplars(exemplars...)
	return domain.Proceed(call, fmt.Sprintf("adding %d exemplars", len(exemplars))), nil
}

// Strategy lists the strategies in scope in the instruction.
type Strategy struct{ folder }

// NewStrategy creates the strategy backend.
func NewStrategy(opts ...FoldOption) *Strategy {
	return &Strategy{newFolder(StrategyName, opts)}
}

func (b *Strategy) Handle(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
	call, ok := current.(*plan.CallPlan)
	if !ok {
		return notCallPlan, nil
	}
	strategies := d.Scopes().Strategies()
	if len(strategies) == 0 {
		return domain.Decline("no strategies in scope"), nil
	}
	call.AppendInstruction("\n\n", "Please follow the following strategies when responding:\n\n"+strings.Join(strategies, "\n"))
	return domain.Proceed(call, fmt.Sprintf("adding %d strategies", len(strategies))), nil
}

// Guard attaches the guards in scope to any plan that accepts them.
type Guard struct{ folder }

// NewGuard creates the guard backend.
func NewGuard(opts ...FoldOption) *Guard {
	return &Guard{newFolder(GuardName, opts)}
}

func (b *Guard) Handle(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
	guardable, ok := current.(plan.Guardable)
	if !ok {
		return domain.Decline("current plan does not accept guards"), nil
	}
	guards := d.Scopes().Guards()
	if len(guards) == 0 {
		return domain.Decline("no guards in scope"), nil
	}
	guardable.AddGuards(guards...)
	return domain.Proceed(current, fmt.Sprintf("adding %d guards", len(guards))), nil
}
