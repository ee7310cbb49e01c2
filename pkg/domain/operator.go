package domain

import (
	"fmt"
)

// Preprocessor normalizes raw call arguments into a Request.
// It never dispatches; it fails only on arity or shape violations.
type Preprocessor func(op *Operator, args ...any) (*Request, error)

// Operator identifies an abstract operation. Operators are values: they carry
// their own preprocessor and may be forked with attached context entries.
// Forks keep the identity of the operator they were forked from.
type Operator struct {
	name       string
	preprocess Preprocessor
	root       *Operator
	contexts   []Entry
}

// NewOperator creates an operator. A nil preprocessor selects DefaultPreprocessor.
func NewOperator(name string, pre Preprocessor) *Operator {
	if pre == nil {
		pre = DefaultPreprocessor
	}
	return &Operator{name: name, preprocess: pre}
}

// Name returns the operator name.
func (o *Operator) Name() string {
	return o.name
}

func (o *Operator) String() string {
	return "<operator " + o.name + ">"
}

// Identity returns the operator this one was (transitively) forked from.
func (o *Operator) Identity() *Operator {
	if o.root != nil {
		return o.root
	}
	return o
}

// Is reports whether both operators share the same identity.
func (o *Operator) Is(other *Operator) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.Identity() == other.Identity()
}

// Contexts returns a copy of the entries attached to this operator.
func (o *Operator) Contexts() []Entry {
	return append([]Entry(nil), o.contexts...)
}

// Preprocess normalizes args into a Request addressed to the operator identity.
// Attached entries are not included; see Bind.
func (o *Operator) Preprocess(args ...any) (*Request, error) {
	req, err := o.preprocess(o.Identity(), args...)
	if err != nil {
		return nil, err
	}
	if req.Operand == nil {
		return nil, &InvalidCallError{Operator: o.name, Arity: len(args), Reason: "no primary operand"}
	}
	return req, nil
}

// Bind is Preprocess followed by appending the entries attached with
// WithContext to Request.Contexts.
func (o *Operator) Bind(args ...any) (*Request, error) {
	req, err := o.Preprocess(args...)
	if err != nil {
		return nil, err
	}
	if len(o.contexts) > 0 {
		req = req.WithContexts(o.contexts...)
	}
	return req, nil
}

func (o *Operator) fork() *Operator {
	return &Operator{
		name:       o.name,
		preprocess: o.preprocess,
		root:       o.Identity(),
		contexts:   append([]Entry(nil), o.contexts...),
	}
}

// WithContext returns a fork of the operator with entries attached. It is not in-place.
func (o *Operator) WithContext(entries ...Entry) *Operator {
	op := o.fork()
	op.contexts = append(op.contexts, entries...)
	return op
}

// WithExemplar returns a fork with an input/output exemplar attached.
func (o *Operator) WithExemplar(input, output any) *Operator {
	return o.WithContext(ExemplarEntry(input, output))
}

// WithGuard returns a fork with a guard attached.
func (o *Operator) WithGuard(g Guard) *Operator {
	return o.WithContext(GuardEntry(g))
}

// DefaultPreprocessor collects positional arguments followed by Keyword values
// and assigns them by position: operand, guest operand, other operands.
func DefaultPreprocessor(op *Operator, args ...any) (*Request, error) {
	operands := OrderArguments(args)
	switch len(operands) {
	case 0:
		return nil, &InvalidCallError{Operator: op.Name(), Arity: 0, Reason: "no operands provided"}
	case 1:
		return &Request{Operator: op, Operand: operands[0]}, nil
	case 2:
		return &Request{Operator: op, Operand: operands[0], GuestOperand: operands[1]}, nil
	default:
		return &Request{
			Operator:      op,
			Operand:       operands[0],
			GuestOperand:  operands[1],
			OtherOperands: append([]any(nil), operands[2:]...),
		}, nil
	}
}

// OrderArguments returns positional arguments first, then the values of Keyword
// arguments, each group in call order.
func OrderArguments(args []any) []any {
	positional := make([]any, 0, len(args))
	var keywords []any
	for _, arg := range args {
		if kw, ok := arg.(Keyword); ok {
			keywords = append(keywords, kw.Value)
			continue
		}
		positional = append(positional, arg)
	}
	return append(positional, keywords...)
}

// ArityError is a helper for operator-specific preprocessors.
func ArityError(op *Operator, got int, want string) error {
	return &InvalidCallError{
		Operator: op.Name(),
		Arity:    got,
		Reason:   fmt.Sprintf("expected %s arguments", want),
	}
}
