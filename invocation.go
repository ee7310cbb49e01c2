package semop

import (
	"fmt"
	"reflect"

	"github.com/aretw0/semop/pkg/contextpack"
	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ops"
	"github.com/aretw0/semop/pkg/prompts"
)

// Invocation is an operator call in serializable form, as received by the
// CLI and the HTTP adapter.
type Invocation struct {
	Operator string `json:"operator"`
	Args     []any  `json:"args"`
	// ReturnType is a parser type name: string, bool, int, int64, float64, list or map.
	ReturnType string   `json:"return_type,omitempty"`
	Contexts   []string `json:"contexts,omitempty"`
	Strategies []string `json:"strategies,omitempty"`
	// Pack is an inline context pack, in the shape accepted by contextpack.Decode.
	Pack map[string]any `json:"pack,omitempty"`
}

// Request preprocesses the invocation into a request.
func (inv Invocation) Request() (*domain.Request, error) {
	op, ok := ops.ByName(inv.Operator)
	if !ok {
		return nil, &domain.InvalidCallError{Operator: inv.Operator, Arity: len(inv.Args), Reason: "unknown operator"}
	}

	args := append([]any(nil), inv.Args...)
	var late reflect.Type
	if inv.ReturnType != "" {
		rt, ok := prompts.TypeByName(inv.ReturnType)
		if !ok {
			return nil, &domain.InvalidCallError{
				Operator: inv.Operator,
				Arity:    len(inv.Args),
				Reason:   fmt.Sprintf("unknown return type %q", inv.ReturnType),
			}
		}
		// Operators with a return type slot take it as their last argument.
		switch op {
		case ops.Resolve, ops.Cast, ops.Select, ops.SelectIter, ops.Split:
			args = append(args, rt)
		default:
			late = rt
		}
	}

	req, err := op.Bind(args...)
	if err != nil {
		return nil, err
	}
	if late != nil {
		req.ReturnType = late
	}
	return inv.attach(req)
}

func (inv Invocation) attach(req *domain.Request) (*domain.Request, error) {
	var entries []domain.Entry
	for _, text := range inv.Contexts {
		entries = append(entries, domain.TextEntry(text))
	}
	for _, s := range inv.Strategies {
		entries = append(entries, domain.StrategyEntry(s))
	}
	if inv.Pack != nil {
		pack, err := contextpack.Decode(inv.Pack)
		if err != nil {
			return nil, err
		}
		entries = append(entries, pack.Entries()...)
	}
	if len(entries) == 0 {
		return req, nil
	}
	return req.WithContexts(entries...), nil
}
