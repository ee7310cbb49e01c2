package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ports"
	"github.com/google/uuid"
)

// BackendSource supplies the registered backends in registration order.
type BackendSource interface {
	List() []ports.Handler
}

// BackendOrder controls the order in which registered backends are offered a request.
type BackendOrder int

const (
	// LatestFirst offers later registrations first: they are assumed more specific.
	LatestFirst BackendOrder = iota
	// RegistrationOrder offers backends in the order they were registered.
	RegistrationOrder
)

func (o BackendOrder) String() string {
	if o == RegistrationOrder {
		return "registration"
	}
	return "latest"
}

// ParseBackendOrder maps "latest" and "registration" to a BackendOrder.
func ParseBackendOrder(s string) (BackendOrder, error) {
	switch s {
	case "", "latest":
		return LatestFirst, nil
	case "registration":
		return RegistrationOrder, nil
	default:
		return LatestFirst, fmt.Errorf("unknown backend order %q", s)
	}
}

// Policy decides how value-bound candidates and backends are merged before
// the dependency sort.
type Policy struct {
	Order         BackendOrder
	BackendsFirst bool
}

// DefaultPolicy tries value-bound candidates first, then backends latest first.
var DefaultPolicy = Policy{Order: LatestFirst}

// Dispatcher drives the chain of responsibility for one request at a time.
// It holds no per-dispatch state, so the same instance serves nested and
// concurrent dispatches.
type Dispatcher struct {
	backends BackendSource
	scopes   ports.ScopeReader
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	policy   Policy
}

// Option defines a functional option for configuring the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger. Dispatch steps are logged at Debug.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Dispatcher) {
		d.hooks = hooks
	}
}

// WithPolicy sets the candidate merge policy.
func WithPolicy(p Policy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// New creates a dispatcher over a backend source and a scope reader.
func New(backends BackendSource, scopes ports.ScopeReader, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		backends: backends,
		scopes:   scopes,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		policy:   DefaultPolicy,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Scopes returns the read-only context view handed to handlers.
func (d *Dispatcher) Scopes() ports.ScopeReader {
	return d.scopes
}

// Policy returns the merge policy in use.
func (d *Dispatcher) Policy() Policy {
	return d.policy
}

// Candidates returns the merged candidate list for req, before any sort.
// Value-bound and backend candidates sharing a name are kept once.
func (d *Dispatcher) Candidates(req *domain.Request) []ports.Handler {
	_, values := Resolve(req.Operands())

	var backends []ports.Handler
	if d.backends != nil {
		backends = append([]ports.Handler(nil), d.backends.List()...)
	}
	if d.policy.Order == LatestFirst {
		for i, j := 0, len(backends)-1; i < j; i, j = i+1, j-1 {
			backends[i], backends[j] = backends[j], backends[i]
		}
	}

	groups := [][]ports.Handler{values, backends}
	if d.policy.BackendsFirst {
		groups[0], groups[1] = groups[1], groups[0]
	}

	seen := make(map[string]bool)
	var merged []ports.Handler
	for _, group := range groups {
		for _, h := range group {
			name := ports.HandlerName(h)
			if seen[name] {
				continue
			}
			seen[name] = true
			merged = append(merged, h)
		}
	}
	return merged
}

// Order returns the names of the candidates for req in the order they would
// be offered the request if every one of them declined.
func (d *Dispatcher) Order(req *domain.Request) ([]string, error) {
	remaining := d.Candidates(req)
	names := make([]string, 0, len(remaining))
	for len(remaining) > 0 {
		sorted, err := SortByDependencies(remaining)
		if err != nil {
			return nil, err
		}
		names = append(names, ports.HandlerName(sorted[0]))
		remaining = sorted[1:]
	}
	return names, nil
}

// Dispatch runs the candidates for req until one finalizes a plan or all are
// consumed. The remaining candidates are sorted again before every pop.
func (d *Dispatcher) Dispatch(ctx context.Context, req *domain.Request) (plan domain.Plan, err error) {
	dispatchID := uuid.NewString()
	operator := req.OperatorName()
	logger := d.logger.With("dispatch_id", dispatchID, "operator", operator)
	start := time.Now()

	remaining := d.Candidates(req)
	base := func(t domain.EventType) domain.EventBase {
		return domain.EventBase{Timestamp: time.Now(), Type: t, DispatchID: dispatchID, Operator: operator}
	}

	if d.hooks.OnDispatchStart != nil {
		d.hooks.OnDispatchStart(ctx, &domain.DispatchEvent{
			EventBase:  base(domain.EventDispatchStart),
			Candidates: handlerNames(remaining),
		})
	}
	defer func() {
		if d.hooks.OnDispatchEnd != nil {
			event := &domain.DispatchEvent{
				EventBase: base(domain.EventDispatchEnd),
				Duration:  time.Since(start),
				Err:       err,
			}
			if plan != nil {
				event.Signs = plan.Signs()
			}
			d.hooks.OnDispatchEnd(ctx, event)
		}
	}()

	logger.DebugContext(ctx, "dispatch started", "candidates", len(remaining))

	var log domain.DispatchLog
	var current domain.Plan
	for len(remaining) > 0 {
		sorted, sortErr := SortByDependencies(remaining)
		if sortErr != nil {
			var cycle *domain.CircularDependencyError
			if errors.As(sortErr, &cycle) {
				cycle.Log = log
			}
			logger.DebugContext(ctx, "dispatch aborted", "err", sortErr)
			return nil, sortErr
		}
		h := sorted[0]
		remaining = sorted[1:]
		name := ports.HandlerName(h)

		outcome, invokeErr := d.invoke(ctx, h, req, current)
		if invokeErr == nil && outcome.Kind != domain.Declined && outcome.Plan == nil {
			invokeErr = fmt.Errorf("%s outcome carries no plan", outcome.Kind)
		}
		if invokeErr != nil {
			log = append(log, domain.LogEntry{Handler: name, Status: domain.LogFailed, Detail: invokeErr.Error()})
			d.handlerEvent(ctx, base, name, domain.LogFailed, invokeErr.Error())
			logger.DebugContext(ctx, "handler failed", "handler", name, "err", invokeErr)
			return nil, &domain.HandlerFailureError{
				Handler:  name,
				Operator: operator,
				Log:      log,
				Cause:    invokeErr,
			}
		}

		var entry domain.LogEntry
		switch outcome.Kind {
		case domain.Declined:
			entry = domain.LogEntry{Handler: name, Status: domain.LogDeclined, Detail: outcome.Reason}
		case domain.Continue:
			current = outcome.Plan
			current.Sign(name, outcome.Note)
			entry = domain.LogEntry{Handler: name, Status: domain.LogContinued, Detail: outcome.Note}
		case domain.Final:
			current = outcome.Plan
			current.Sign(name, outcome.Note)
			current.MarkFinal()
			entry = domain.LogEntry{Handler: name, Status: domain.LogFinalized, Detail: outcome.Note}
		default:
			return nil, &domain.HandlerFailureError{
				Handler:  name,
				Operator: operator,
				Log:      log,
				Cause:    fmt.Errorf("unknown outcome kind %d", outcome.Kind),
			}
		}
		log = append(log, entry)
		d.handlerEvent(ctx, base, name, entry.Status, entry.Detail)
		logger.DebugContext(ctx, "handler invoked", "handler", name, "status", entry.Status, "detail", entry.Detail)

		if current != nil && current.Final() {
			break
		}
	}

	if current == nil {
		logger.DebugContext(ctx, "no implementation found", "invoked", len(log))
		return nil, &domain.UnimplementedError{Operator: operator, Log: log}
	}

	logger.DebugContext(ctx, "dispatch finished", "signs", len(current.Signs()), "final", current.Final())
	return current, nil
}

// invoke calls h, turning a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, h ports.Handler, req *domain.Request, current domain.Plan) (outcome domain.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", rErr)
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(ctx, req, d, current)
}

func (d *Dispatcher) handlerEvent(ctx context.Context, base func(domain.EventType) domain.EventBase, name string, status domain.LogStatus, detail string) {
	if d.hooks.OnHandlerInvoked == nil {
		return
	}
	d.hooks.OnHandlerInvoked(ctx, &domain.HandlerEvent{
		EventBase: base(domain.EventHandlerInvoked),
		Handler:   name,
		Status:    status,
		Detail:    detail,
	})
}

func handlerNames(handlers []ports.Handler) []string {
	names := make([]string, len(handlers))
	for i, h := range handlers {
		names[i] = ports.HandlerName(h)
	}
	return names
}
