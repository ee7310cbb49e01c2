package domain

import (
	"reflect"
)

// Semantic marks value types that take part in candidate resolution.
// A type exposing Semantic without also handling requests is seen by the
// resolver but never invoked, the same way a plain value is ignored.
type Semantic interface {
	Semantic()
}

// Keyword is a named argument. The default preprocessor places keyword
// arguments after all positional ones, in call order.
type Keyword struct {
	Name  string
	Value any
}

// Kw builds a Keyword argument.
func Kw(name string, value any) Keyword {
	return Keyword{Name: name, Value: value}
}

// Request is the canonical description of one operator call.
//
// The general form of every request is:
//
//	result: ReturnType = Operand[Index].Operator(GuestOperand, OtherOperands...)
//
// Requests are never mutated after preprocessing; derived requests are copies.
type Request struct {
	// Operator is the operation being invoked.
	Operator *Operator

	// Operand is the primary subject. Always set.
	Operand any

	// GuestOperand is the secondary subject, set only when position 2 was supplied.
	GuestOperand any

	// OtherOperands holds positions 3 and beyond.
	OtherOperands []any

	// Index is the selector argument of indexing-style operations (e.g. apply with "where").
	Index any

	// ReturnType hints the expected shape of the result. Nil means unspecified.
	ReturnType reflect.Type

	// ReturnIterable reports that the result is a sequence of ReturnType.
	ReturnIterable bool

	// Contexts are the annotations attached to the call.
	Contexts []Entry
}

// HasGuest reports whether a secondary operand was supplied.
func (r *Request) HasGuest() bool {
	return r.GuestOperand != nil
}

// Operands returns operand, guest (if present) and the other operands, in order.
// The returned slice is a fresh copy.
func (r *Request) Operands() []any {
	out := make([]any, 0, 2+len(r.OtherOperands))
	out = append(out, r.Operand)
	if r.GuestOperand != nil {
		out = append(out, r.GuestOperand)
	}
	out = append(out, r.OtherOperands...)
	return out
}

// OperatorName returns the operator name, or "<nil>" for a malformed request.
func (r *Request) OperatorName() string {
	if r.Operator == nil {
		return "<nil>"
	}
	return r.Operator.Name()
}

func (r *Request) clone() *Request {
	next := *r
	next.OtherOperands = append([]any(nil), r.OtherOperands...)
	next.Contexts = append([]Entry(nil), r.Contexts...)
	return &next
}

// WithoutContexts returns a copy of the request with no attached contexts.
func (r *Request) WithoutContexts() *Request {
	next := r.clone()
	next.Contexts = nil
	return next
}

// WithContexts returns a copy of the request with entries appended to its contexts.
func (r *Request) WithContexts(entries ...Entry) *Request {
	next := r.clone()
	next.Contexts = append(next.Contexts, entries...)
	return next
}

// WithOperator returns a copy of the request addressed to another operator.
func (r *Request) WithOperator(op *Operator) *Request {
	next := r.clone()
	next.Operator = op
	return next
}

// Input is the flat view of a request used by plans and prompt templates.
// Keys: operator, s, t, others, index, operands, return_type, iterable.
func (r *Request) Input() map[string]any {
	input := map[string]any{
		"operator": r.OperatorName(),
		"s":        r.Operand,
		"t":        r.GuestOperand,
		"others":   append([]any(nil), r.OtherOperands...),
		"index":    r.Index,
		"operands": r.Operands(),
		"iterable": r.ReturnIterable,
	}
	if r.ReturnType != nil {
		input["return_type"] = r.ReturnType.String()
	} else {
		input["return_type"] = ""
	}
	return input
}
