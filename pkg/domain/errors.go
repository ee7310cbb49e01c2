package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCall is returned when arguments cannot be normalized into a request.
	ErrInvalidCall = errors.New("invalid call")

	// ErrUnimplemented is returned when every candidate declined.
	ErrUnimplemented = errors.New("no implementation found")

	// ErrCircularDependency is returned when handler dependencies form a cycle.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrGuardViolation is returned when a plan fails one of its guards.
	ErrGuardViolation = errors.New("guard violation")

	// ErrHandlerFailure marks an unexpected error raised by a handler.
	ErrHandlerFailure = errors.New("handler failure")

	// ErrDuplicateHandler is returned when a backend name is registered twice.
	ErrDuplicateHandler = errors.New("handler already registered")

	// ErrHandlerNotFound is returned when unregistering an unknown backend.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrScopeOrder is the panic value for scopes closed out of LIFO order.
	ErrScopeOrder = errors.New("scope closed out of order")
)

// LogStatus is the result of one handler invocation in the dispatch log.
type LogStatus string

const (
	LogDeclined  LogStatus = "declined"
	LogContinued LogStatus = "continued"
	LogFinalized LogStatus = "finalized"
	LogFailed    LogStatus = "failed"
)

// LogEntry records one handler invocation during dispatch.
type LogEntry struct {
	Handler string    `json:"handler"`
	Status  LogStatus `json:"status"`
	Detail  string    `json:"detail,omitempty"`
}

func (l LogEntry) String() string {
	msg := fmt.Sprintf("handler %s invoked, %s", l.Handler, l.Status)
	if l.Detail != "" {
		msg += ": " + l.Detail
	}
	return msg
}

// DispatchLog is the ordered record of handler invocations for one dispatch.
type DispatchLog []LogEntry

func (d DispatchLog) String() string {
	var sb strings.Builder
	sb.WriteString("Full dispatch log:")
	if len(d) == 0 {
		sb.WriteString("\n  (no handlers invoked)")
	}
	for _, entry := range d {
		sb.WriteString("\n  ")
		sb.WriteString(entry.String())
	}
	return sb.String()
}

// InvalidCallError reports an arity or shape mismatch during preprocessing.
type InvalidCallError struct {
	Operator string
	Arity    int
	Reason   string
}

func (e *InvalidCallError) Error() string {
	return fmt.Sprintf("invalid call to %s with %d argument(s): %s", e.Operator, e.Arity, e.Reason)
}

func (e *InvalidCallError) Is(target error) bool { return target == ErrInvalidCall }

// UnimplementedError reports that no candidate produced a plan.
type UnimplementedError struct {
	Operator string
	Log      DispatchLog
}

func (e *UnimplementedError) Error() string {
	return fmt.Sprintf("no implementation found for %s\n%s", e.Operator, e.Log)
}

func (e *UnimplementedError) Is(target error) bool { return target == ErrUnimplemented }

// CircularDependencyError names the handlers left with unresolved dependencies.
type CircularDependencyError struct {
	// Residual maps handler name to its remaining in-degree.
	Residual map[string]int
	Log      DispatchLog
}

// Handlers returns the cyclic handler names, sorted.
func (e *CircularDependencyError) Handlers() []string {
	names := make([]string, 0, len(e.Residual))
	for name := range e.Residual {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, 0, len(e.Residual))
	for _, name := range e.Handlers() {
		parts = append(parts, fmt.Sprintf("%s: %d", name, e.Residual[name]))
	}
	return fmt.Sprintf("circular dependency found in handlers: {%s}", strings.Join(parts, ", "))
}

func (e *CircularDependencyError) Is(target error) bool { return target == ErrCircularDependency }

// GuardViolationError reports the first guard a plan failed, with the audit
// trail of the plan that was replayed.
type GuardViolationError struct {
	Guard  Guard
	Output any
	Signs  []Sign
}

func (e *GuardViolationError) Error() string {
	var msg string
	if e.Guard.Checker != nil {
		msg = fmt.Sprintf("invalid plan because guard %s failed its checker: output %#v", e.Guard.Label(), e.Output)
	} else {
		msg = fmt.Sprintf("invalid plan because guard %s failed: expected %#v, got %#v", e.Guard.Label(), e.Guard.Expected, e.Output)
	}
	var sb strings.Builder
	sb.WriteString(msg)
	sb.WriteString("\nPlan audit trail:")
	if len(e.Signs) == 0 {
		sb.WriteString("\n  (unsigned)")
	}
	for _, s := range e.Signs {
		sb.WriteString("\n  ")
		sb.WriteString(s.Handler)
		if s.Note != "" {
			sb.WriteString(": ")
			sb.WriteString(s.Note)
		}
	}
	return sb.String()
}

func (e *GuardViolationError) Is(target error) bool { return target == ErrGuardViolation }

// HandlerFailureError wraps an unexpected handler error with dispatch context.
// errors.Is and errors.As reach both ErrHandlerFailure and the original cause.
type HandlerFailureError struct {
	Handler  string
	Operator string
	Log      DispatchLog
	Cause    error
}

func (e *HandlerFailureError) Error() string {
	return fmt.Sprintf("%v [while calling %s implementation of %s]\n%s", e.Cause, e.Handler, e.Operator, e.Log)
}

func (e *HandlerFailureError) Is(target error) bool { return target == ErrHandlerFailure }

func (e *HandlerFailureError) Unwrap() error { return e.Cause }
