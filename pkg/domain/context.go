package domain

import "fmt"

// EntryKind discriminates context entries.
type EntryKind string

const (
	KindText     EntryKind = "text"
	KindRole     EntryKind = "role"
	KindExemplar EntryKind = "exemplar"
	KindStrategy EntryKind = "strategy"
	KindGuard    EntryKind = "guard"
)

// Exemplar is a sample input/output pair used to steer a handler (few-shot guidance).
type Exemplar struct {
	Input  any `json:"input" yaml:"input"`
	Output any `json:"output" yaml:"output"`
}

// Checker validates the output of a guard replay.
type Checker func(output any, g Guard) bool

// Guard is an input case plus either an expected output or a custom checker.
// Plans replay themselves against every attached guard before executing.
type Guard struct {
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	Input    map[string]any `json:"input" yaml:"input"`
	Expected any            `json:"expected,omitempty" yaml:"expected,omitempty"`
	Checker  Checker        `json:"-" yaml:"-"`
}

// Validate reports a guard that can never be checked.
func (g Guard) Validate() error {
	if g.Expected == nil && g.Checker == nil {
		return fmt.Errorf("guard %q: either expected or checker must be provided", g.Label())
	}
	return nil
}

// Check runs the checker if present, otherwise compares against Expected
// with Equivalent.
func (g Guard) Check(output any) bool {
	if g.Checker != nil {
		return g.Checker(output, g)
	}
	return Equivalent(output, g.Expected)
}

// Label names the guard for error messages.
func (g Guard) Label() string {
	if g.Name != "" {
		return g.Name
	}
	return fmt.Sprintf("input=%v", g.Input)
}

// Entry is a context annotation pushed by a scope. Exactly the field matching
// Kind is meaningful.
type Entry struct {
	Kind     EntryKind
	Text     string
	Role     string
	Exemplar *Exemplar
	Strategy string
	Guard    *Guard
}

// TextEntry is free context text.
func TextEntry(text string) Entry {
	return Entry{Kind: KindText, Text: text}
}

// RoleEntry is context text scoped to a named role (e.g. "audience").
func RoleEntry(role, text string) Entry {
	return Entry{Kind: KindRole, Role: role, Text: text}
}

// ExemplarEntry wraps an input/output exemplar.
func ExemplarEntry(input, output any) Entry {
	return Entry{Kind: KindExemplar, Exemplar: &Exemplar{Input: input, Output: output}}
}

// StrategyEntry is an execution strategy hint.
func StrategyEntry(strategy string) Entry {
	return Entry{Kind: KindStrategy, Strategy: strategy}
}

// GuardEntry wraps a correctness guard.
func GuardEntry(g Guard) Entry {
	return Entry{Kind: KindGuard, Guard: &g}
}

func (e Entry) String() string {
	switch e.Kind {
	case KindText:
		return e.Text
	case KindRole:
		return e.Role + ": " + e.Text
	case KindExemplar:
		if e.Exemplar == nil {
			return "exemplar(<nil>)"
		}
		return fmt.Sprintf("exemplar(%v -> %v)", e.Exemplar.Input, e.Exemplar.Output)
	case KindStrategy:
		return e.Strategy
	case KindGuard:
		if e.Guard == nil {
			return "guard(<nil>)"
		}
		return "guard(" + e.Guard.Label() + ")"
	default:
		return fmt.Sprintf("entry(%s)", e.Kind)
	}
}
