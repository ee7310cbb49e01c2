package values

import (
	"context"
	"reflect"

	"github.com/aretw0/semop/pkg/backends"
	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ops"
	"github.com/aretw0/semop/pkg/plan"
	"github.com/aretw0/semop/pkg/ports"
	"github.com/aretw0/semop/pkg/prompts"
)

const typedInstruction = "\n" +
	`You may see an "index", which describes what information you should extract.` + "\n" +
	`You may also see a "dtype", which describes the type of the extracted information.` + "\n" +
	"The response should be a literal of the desired dtype."

const typedInput = `index: {{if nonempty .t.Selector}}{{.t.Selector}}{{else}}Not specified. ` +
	`You can extract the most important part of the text, typically the final answer, or the main point.{{end}}
dtype: {{.t.Type}}

Content: {{.s}}`

// TypedSelector is a select index that also names the type of the result.
// An empty Selector asks for the main point of the subject.
type TypedSelector struct {
	Selector string
	Type     reflect.Type
}

// SelectAs builds a TypedSelector for T.
func SelectAs[T any](selector string) TypedSelector {
	return TypedSelector{Selector: selector, Type: ops.Type[T]()}
}

func (TypedSelector) Semantic() {}

// Dependencies makes the selector run after the completion plan exists.
func (TypedSelector) Dependencies() []string {
	return []string{backends.CompletionName}
}

// Handle rewrites a select completion plan to extract a value of the
// selector's type.
func (s TypedSelector) Handle(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
	if !req.Operator.Is(ops.Select) {
		return domain.Decline("typed selectors only refine select"), nil
	}
	call, ok := current.(*plan.CallPlan)
	if !ok {
		return domain.Decline("no completion plan to refine"), nil
	}
	sel, ok := req.GuestOperand.(TypedSelector)
	if !ok || sel.Type == nil {
		return domain.Decline("selector is not typed"), nil
	}

	if err := call.SetInputTemplate(typedInput); err != nil {
		return domain.Outcome{}, err
	}
	call.AppendInstruction("", typedInstruction)
	call.SetExemplars(domain.Exemplar{
		Input: map[string]any{
			"t": SelectAs[int](""),
			"s": "The answer to life, the universe, and everything is 42.",
		},
		Output: 42,
	})
	call.SetOutputTemplate("")
	call.SetParser(prompts.TypeParser{Type: sel.Type})
	return domain.Proceed(call, "adding typed information"), nil
}
