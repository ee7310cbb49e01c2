package backends

import (
	"context"
	"fmt"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ops"
	"github.com/aretw0/semop/pkg/plan"
	"github.com/aretw0/semop/pkg/ports"
)

// Redirect serves equals and contains by rewriting them into
// logical_binary("equals"|"contains", s, t). The rewritten request is
// dispatched when the plan executes, so guard replays with another input
// dispatch again. The nested dispatch sees the contexts that were in scope
// at compile time. Guards stay on the outer plan: their inputs name the
// operands of equals and contains, not those of logical_binary.
type Redirect struct{}

func (Redirect) Name() string { return RedirectName }

func (Redirect) Handle(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
	var verb string
	switch {
	case req.Operator.Is(ops.Equals):
		verb = "equals"
	case req.Operator.Is(ops.Contains):
		verb = "contains"
	default:
		return domain.Decline("only equals and contains are redirected"), nil
	}
	if !req.HasGuest() {
		return domain.Outcome{}, domain.ArityError(req.Operator, 1, "2")
	}

	detached := d.Detach(domain.KindGuard)
	p := plan.NewFunc(req.Input(), func(ctx context.Context, input map[string]any) (any, error) {
		inner, err := ops.LogicalBinary.Preprocess(verb, input["s"], input["t"])
		if err != nil {
			return nil, err
		}
		nested, err := detached.Dispatch(ctx, inner)
		if err != nil {
			return nil, fmt.Errorf("%s redirected to %s: %w", verb, ops.LogicalBinary.Name(), err)
		}
		return nested.Execute(ctx)
	})
	note := "redirected to " + ops.LogicalBinary.Name()
	if guards := d.Scopes().Guards(); len(guards) > 0 {
		p.AddGuards(guards...)
		note += fmt.Sprintf(", adding %d guards", len(guards))
	}
	return domain.Finalize(p, note), nil
}
