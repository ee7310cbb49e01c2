// Package values holds small value types that take part in dispatch.
//
// Text only exposes the protocol: the resolver sees it but it never handles
// a request. TypedSelector refines select plans built by the completion
// backend. Document answers apply on one of its sections itself, through a
// nested dispatch, and finalizes the plan.
package values

// Text is plain text that participates in candidate resolution without
// handling anything.
type Text string

func (Text) Semantic() {}

func (t Text) String() string { return string(t) }
