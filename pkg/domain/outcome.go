package domain

// OutcomeKind is the tag of a handler result.
type OutcomeKind int

const (
	// Declined: the handler does not apply to this request or plan shape.
	Declined OutcomeKind = iota
	// Continue: the returned plan becomes current and dispatch goes on.
	Continue
	// Final: the returned plan becomes current and dispatch stops.
	Final
)

func (k OutcomeKind) String() string {
	switch k {
	case Declined:
		return "declined"
	case Continue:
		return "continue"
	case Final:
		return "final"
	default:
		return "unknown"
	}
}

// Outcome is what a handler did with a request.
type Outcome struct {
	Kind OutcomeKind
	// Plan is the produced or augmented plan. Nil when declined.
	Plan Plan
	// Note is recorded in the plan's audit trail next to the handler name.
	Note string
	// Reason explains a decline in the dispatch log.
	Reason string
}

// Decline returns a Declined outcome with an optional reason.
func Decline(reason string) Outcome {
	return Outcome{Kind: Declined, Reason: reason}
}

// Proceed returns a Continue outcome carrying plan.
func Proceed(plan Plan, note string) Outcome {
	return Outcome{Kind: Continue, Plan: plan, Note: note}
}

// Finalize returns a Final outcome carrying plan.
func Finalize(plan Plan, note string) Outcome {
	return Outcome{Kind: Final, Plan: plan, Note: note}
}
