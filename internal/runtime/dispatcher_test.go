package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/aretw0/semop/internal/runtime"
	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/plan"
	"github.com/aretw0/semop/pkg/ports"
	"github.com/aretw0/semop/pkg/registry"
	"github.com/aretw0/semop/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	opEcho    = domain.NewOperator("echo", nil)
	opCompute = domain.NewOperator("compute", nil)

	_ ports.Dispatcher = (*runtime.Dispatcher)(nil)
)

// ValueA is an operand type with no capability.
type ValueA struct{ Payload string }

func newDispatcher(t *testing.T, opts []runtime.Option, handlers ...ports.Handler) (*runtime.Dispatcher, *scope.Stack) {
	t.Helper()
	reg := registry.New()
	for _, h := range handlers {
		require.NoError(t, reg.Register(h))
	}
	stack := scope.New()
	return runtime.New(reg, stack, opts...), stack
}

func bind(t *testing.T, op *domain.Operator, args ...any) *domain.Request {
	t.Helper()
	req, err := op.Bind(args...)
	require.NoError(t, err)
	return req
}

// echoBackend returns the first string operand unchanged.
var echoBackend = ports.HandlerFunc{
	ID: "EchoBackend",
	Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
		for _, operand := range req.Operands() {
			if s, ok := operand.(string); ok {
				return domain.Proceed(plan.Const(s), "created"), nil
			}
		}
		return domain.Decline("no literal operand"), nil
	},
}

func TestDispatch_EchoScenario(t *testing.T) {
	d, _ := newDispatcher(t, nil, echoBackend)

	p, err := d.Dispatch(context.Background(), bind(t, opEcho, ValueA{Payload: "ignored"}, "literal"))
	require.NoError(t, err)
	assert.Equal(t, []domain.Sign{{Handler: "EchoBackend", Note: "created"}}, p.Signs())

	out, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "literal", out)
}

// labelPlan accumulates contributions from several handlers.
type labelPlan struct {
	domain.AuditTrail
	parts []string
}

func (p *labelPlan) Execute(ctx context.Context) (any, error) {
	return fmt.Sprint(p.parts), nil
}

var (
	baseBackend = ports.HandlerFunc{
		ID: "Base",
		Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
			return domain.Proceed(&labelPlan{parts: []string{"base"}}, "created"), nil
		},
	}
	augmentBackend = ports.HandlerFunc{
		ID:   "Augment",
		Deps: []string{"Base"},
		Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
			p, ok := current.(*labelPlan)
			if !ok {
				return domain.Decline("no plan to augment"), nil
			}
			p.parts = append(p.parts, "augment")
			return domain.Proceed(p, "augmented"), nil
		},
	}
)

func TestDispatch_BaseAugmentScenario(t *testing.T) {
	// Either registration order: Augment always runs after Base.
	for _, order := range [][]ports.Handler{{baseBackend, augmentBackend}, {augmentBackend, baseBackend}} {
		d, _ := newDispatcher(t, nil, order...)

		p, err := d.Dispatch(context.Background(), bind(t, opEcho, "x"))
		require.NoError(t, err)
		assert.Equal(t, []domain.Sign{
			{Handler: "Base", Note: "created"},
			{Handler: "Augment", Note: "augmented"},
		}, p.Signs())

		out, err := p.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "[base augment]", out)
	}
}

func TestDispatch_CircularDependency(t *testing.T) {
	a := declining("A", "B")
	b := declining("B", "A")

	for _, order := range [][]ports.Handler{{a, b}, {b, a}} {
		d, _ := newDispatcher(t, nil, order...)
		_, err := d.Dispatch(context.Background(), bind(t, opEcho, "x"))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)
		assert.Contains(t, err.Error(), "{A: 1, B: 1}")
	}
}

func TestDispatch_FinalStops(t *testing.T) {
	var invoked []string
	record := func(name string, kind domain.OutcomeKind) ports.HandlerFunc {
		return ports.HandlerFunc{
			ID: name,
			Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
				invoked = append(invoked, name)
				if kind == domain.Final {
					return domain.Finalize(plan.Const(name), "final"), nil
				}
				return domain.Proceed(plan.Const(name), "created"), nil
			},
		}
	}

	// Registration order with LatestFirst: Late, Stop, Early.
	d, _ := newDispatcher(t, nil, record("Early", domain.Continue), record("Stop", domain.Final), record("Late", domain.Continue))

	p, err := d.Dispatch(context.Background(), bind(t, opEcho, "x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Late", "Stop"}, invoked)
	assert.True(t, p.Final())
	assert.Len(t, p.Signs(), 1)
	assert.Equal(t, "Stop", p.Signs()[0].Handler)
}

func TestDispatch_Unimplemented(t *testing.T) {
	d, _ := newDispatcher(t, nil, declining("One"), declining("Two"))

	_, err := d.Dispatch(context.Background(), bind(t, opEcho, "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnimplemented)

	var unimpl *domain.UnimplementedError
	require.True(t, errors.As(err, &unimpl))
	assert.Equal(t, "echo", unimpl.Operator)
	require.Len(t, unimpl.Log, 2)
	assert.Equal(t, domain.LogDeclined, unimpl.Log[0].Status)
	assert.Contains(t, err.Error(), "handler Two invoked, declined: Two is not applicable")
	assert.Contains(t, err.Error(), "handler One invoked, declined: One is not applicable")
}

func TestDispatch_NoCandidates(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	_, err := d.Dispatch(context.Background(), bind(t, opEcho, "x"))
	assert.ErrorIs(t, err, domain.ErrUnimplemented)
	assert.Contains(t, err.Error(), "(no handlers invoked)")
}

var errBackendDown = errors.New("backend down")

func TestDispatch_HandlerFailure(t *testing.T) {
	failing := ports.HandlerFunc{
		ID: "Failing",
		Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
			return domain.Outcome{}, errBackendDown
		},
	}
	d, _ := newDispatcher(t, nil, failing, declining("Before"))

	_, err := d.Dispatch(context.Background(), bind(t, opEcho, "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrHandlerFailure)
	assert.ErrorIs(t, err, errBackendDown)

	var failure *domain.HandlerFailureError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "Failing", failure.Handler)
	assert.Equal(t, "echo", failure.Operator)
	require.Len(t, failure.Log, 2)
	assert.Equal(t, "Before", failure.Log[0].Handler)
	assert.Contains(t, err.Error(), "backend down [while calling Failing implementation of echo]")
}

func TestDispatch_HandlerPanic(t *testing.T) {
	panicking := ports.HandlerFunc{
		ID: "Panicking",
		Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
			panic(errBackendDown)
		},
	}
	d, _ := newDispatcher(t, nil, panicking)

	_, err := d.Dispatch(context.Background(), bind(t, opEcho, "x"))
	assert.ErrorIs(t, err, domain.ErrHandlerFailure)
	assert.ErrorIs(t, err, errBackendDown)
}

func TestDispatch_OutcomeWithoutPlan(t *testing.T) {
	broken := ports.HandlerFunc{
		ID: "Broken",
		Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
			return domain.Proceed(nil, "oops"), nil
		},
	}
	d, _ := newDispatcher(t, nil, broken)

	_, err := d.Dispatch(context.Background(), bind(t, opEcho, "x"))
	assert.ErrorIs(t, err, domain.ErrHandlerFailure)
	assert.Contains(t, err.Error(), "continue outcome carries no plan")
}

// Answering is a value type that answers every request itself.
type Answering struct{ Value string }

func (a Answering) Handle(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
	return domain.Proceed(plan.Const(a.Value), "value"), nil
}

// SpecialAnswering specializes Answering.
type SpecialAnswering struct{ Answering }

func (s SpecialAnswering) Handle(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
	return domain.Finalize(plan.Const("special:"+s.Value), "special"), nil
}

func TestDispatch_ValueBeforeBackends(t *testing.T) {
	var order []string
	spy := ports.HandlerFunc{
		ID: "Spy",
		Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
			if current != nil {
				order = append(order, "Spy saw "+current.Signs()[0].Handler)
			} else {
				order = append(order, "Spy saw nothing")
			}
			return domain.Decline(""), nil
		},
	}
	d, _ := newDispatcher(t, nil, spy)

	p, err := d.Dispatch(context.Background(), bind(t, opEcho, Answering{Value: "v"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Spy saw Answering"}, order)
	assert.Equal(t, "Answering", p.Signs()[0].Handler)
}

func TestDispatch_BackendsFirstPolicy(t *testing.T) {
	d, _ := newDispatcher(t,
		[]runtime.Option{runtime.WithPolicy(runtime.Policy{BackendsFirst: true})},
		echoBackend,
	)

	names, err := d.Order(bind(t, opEcho, Answering{Value: "v"}, "literal"))
	require.NoError(t, err)
	assert.Equal(t, []string{"EchoBackend", "Answering"}, names)
}

func TestDispatch_RegistrationOrderPolicy(t *testing.T) {
	latest, _ := newDispatcher(t, nil, declining("First"), declining("Second"))
	registration, _ := newDispatcher(t,
		[]runtime.Option{runtime.WithPolicy(runtime.Policy{Order: runtime.RegistrationOrder})},
		declining("First"), declining("Second"),
	)
	req := bind(t, opEcho, "x")

	names, err := latest.Order(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"Second", "First"}, names)

	names, err = registration.Order(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Second"}, names)
}

func TestDispatch_SubtypeFirst(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	base := Answering{Value: "base"}
	special := SpecialAnswering{Answering{Value: "sub"}}

	for _, args := range [][]any{{base, special}, {special, base}} {
		p, err := d.Dispatch(context.Background(), bind(t, opEcho, args...))
		require.NoError(t, err)
		require.Len(t, p.Signs(), 1)
		assert.Equal(t, "SpecialAnswering", p.Signs()[0].Handler)
	}
}

func TestDispatch_GuardScenario(t *testing.T) {
	compute := ports.HandlerFunc{
		ID: "Compute",
		Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
			return domain.Proceed(plan.NewFunc(req.Input(), func(ctx context.Context, in map[string]any) (any, error) {
				if in["s"] == "x" {
					return "41", nil
				}
				return "ok", nil
			}), "created"), nil
		},
	}
	guardFold := ports.HandlerFunc{
		ID:   "GuardFold",
		Deps: []string{"Compute"},
		Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
			guards := d.Scopes().Guards()
			g, ok := current.(plan.Guardable)
			if len(guards) == 0 || !ok {
				return domain.Decline("nothing to fold"), nil
			}
			g.AddGuards(guards...)
			return domain.Proceed(current, fmt.Sprintf("adding %d guards", len(guards))), nil
		},
	}
	d, stack := newDispatcher(t, nil, guardFold, compute)

	guard := domain.Guard{Name: "answer", Input: map[string]any{"s": "x"}, Expected: "42"}
	err := stack.Do([]domain.Entry{domain.GuardEntry(guard)}, func() error {
		p, err := d.Dispatch(context.Background(), bind(t, opCompute, "y"))
		require.NoError(t, err)
		assert.Equal(t, []domain.Sign{
			{Handler: "Compute", Note: "created"},
			{Handler: "GuardFold", Note: "adding 1 guards"},
		}, p.Signs())

		_, err = p.Execute(context.Background())
		return err
	})

	var violation *domain.GuardViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "answer", violation.Guard.Name)
	assert.Equal(t, "41", violation.Output)
	assert.Contains(t, err.Error(), `guard answer failed: expected "42", got "41"`)

	// Outside the scope the same dispatch carries no guard.
	p, err := d.Dispatch(context.Background(), bind(t, opCompute, "y"))
	require.NoError(t, err)
	out, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestDispatch_Nested(t *testing.T) {
	opInner := domain.NewOperator("inner", nil)
	redirect := ports.HandlerFunc{
		ID: "Redirect",
		Fn: func(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
			if !req.Operator.Is(opEcho) {
				return domain.Decline("only echo"), nil
			}
			inner, err := d.Dispatch(ctx, req.WithOperator(opInner))
			if err != nil {
				return domain.Outcome{}, err
			}
			return domain.Finalize(inner, "redirected"), nil
		},
	}
	d, _ := newDispatcher(t, nil, echoBackend, redirect)

	p, err := d.Dispatch(context.Background(), bind(t, opEcho, "hello"))
	require.NoError(t, err)
	assert.Equal(t, []domain.Sign{
		{Handler: "EchoBackend", Note: "created"},
		{Handler: "Redirect", Note: "redirected"},
	}, p.Signs())
}

func TestDispatch_Hooks(t *testing.T) {
	var started, ended []*domain.DispatchEvent
	var handlers []*domain.HandlerEvent
	hooks := domain.LifecycleHooks{
		OnDispatchStart:  func(ctx context.Context, e *domain.DispatchEvent) { started = append(started, e) },
		OnHandlerInvoked: func(ctx context.Context, e *domain.HandlerEvent) { handlers = append(handlers, e) },
		OnDispatchEnd:    func(ctx context.Context, e *domain.DispatchEvent) { ended = append(ended, e) },
	}
	d, _ := newDispatcher(t, []runtime.Option{runtime.WithLifecycleHooks(hooks)}, echoBackend, declining("Skip"))

	_, err := d.Dispatch(context.Background(), bind(t, opEcho, "x"))
	require.NoError(t, err)

	require.Len(t, started, 1)
	require.Len(t, ended, 1)
	assert.Equal(t, []string{"Skip", "EchoBackend"}, started[0].Candidates)
	assert.Equal(t, started[0].DispatchID, ended[0].DispatchID)
	assert.NotEmpty(t, started[0].DispatchID)
	assert.Equal(t, "echo", ended[0].Operator)
	assert.NoError(t, ended[0].Err)
	assert.Len(t, ended[0].Signs, 1)

	require.Len(t, handlers, 2)
	assert.Equal(t, domain.LogDeclined, handlers[0].Status)
	assert.Equal(t, domain.LogContinued, handlers[1].Status)
}

func TestDispatch_DebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d, _ := newDispatcher(t, []runtime.Option{runtime.WithLogger(logger)}, echoBackend)

	_, err := d.Dispatch(context.Background(), bind(t, opEcho, "x"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "handler invoked")
	assert.Contains(t, out, "handler=EchoBackend")
	assert.Contains(t, out, "operator=echo")
	assert.Contains(t, out, "dispatch_id=")
}

func TestParseBackendOrder(t *testing.T) {
	o, err := runtime.ParseBackendOrder("registration")
	require.NoError(t, err)
	assert.Equal(t, runtime.RegistrationOrder, o)
	assert.Equal(t, "registration", o.String())

	o, err = runtime.ParseBackendOrder("")
	require.NoError(t, err)
	assert.Equal(t, runtime.LatestFirst, o)

	_, err = runtime.ParseBackendOrder("random")
	assert.Error(t, err)
}
