// Package backends provides the registered handlers that implement broad
// strategies for every operator.
//
// Completion turns a request into a *plan.CallPlan from the prompt library.
// Context, Exemplar, Strategy and Guard run after it and fold the entries of
// the active scopes into that plan. Redirect rewrites equals and contains
// into logical_binary through a nested dispatch.
//
// Defaults returns them in the order they are meant to be registered:
//
//	for _, h := range backends.Defaults(completer) {
//		reg.MustRegister(h)
//	}
package backends

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ops"
	"github.com/aretw0/semop/pkg/plan"
	"github.com/aretw0/semop/pkg/ports"
	"github.com/aretw0/semop/pkg/prompts"
)

// Backend names, as seen in audit trails and dependency declarations.
const (
	CompletionName = "CompletionBackend"
	RedirectName   = "RedirectBackend"
	ContextName    = "ContextBackend"
	ExemplarName   = "ExemplarBackend"
	StrategyName   = "StrategyBackend"
	GuardName      = "GuardBackend"
)

// Completion builds a text-generation plan from the prompt registered for the
// operator, or the universal prompt.
type Completion struct {
	library   *prompts.Library
	completer ports.Completer
	logger    *slog.Logger
}

// CompletionOption configures a Completion backend.
type CompletionOption func(*Completion)

// WithLibrary replaces the built-in prompt library.
func WithLibrary(lib *prompts.Library) CompletionOption {
	return func(c *Completion) {
		if lib != nil {
			c.library = lib
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CompletionOption {
	return func(c *Completion) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCompletion creates the backend. completer may be nil: plans are still
// built and inspectable, and fail with plan.ErrNoCompleter when executed.
func NewCompletion(completer ports.Completer, opts ...CompletionOption) *Completion {
	c := &Completion{
		library:   prompts.MustBuiltin(),
		completer: completer,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Completion) Name() string { return CompletionName }

// Library returns the prompt library in use.
func (c *Completion) Library() *prompts.Library { return c.library }

func (c *Completion) Handle(ctx context.Context, req *domain.Request, d ports.Dispatcher, current domain.Plan) (domain.Outcome, error) {
	if current != nil {
		return domain.Decline("a plan was already produced"), nil
	}

	tmpl, ok := c.library.For(req.OperatorName())
	if !ok {
		return domain.Decline("no prompt for " + req.OperatorName()), nil
	}

	p, err := plan.NewCall(tmpl, req.Input(), c.completer)
	if err != nil {
		return domain.Outcome{}, err
	}

	if req.ReturnType != nil {
		typed := prompts.TypeParser{Type: req.ReturnType}
		switch {
		case req.ReturnIterable:
			if sep, ok := p.Parser().(prompts.SeparatorParser); ok && sep.Inner == nil {
				sep.Inner = typed
				p.SetParser(sep)
			}
		case req.Operator.Is(ops.Resolve), req.Operator.Is(ops.Cast), req.Operator.Is(ops.Select):
			p.SetParser(prompts.Chain(p.Parser(), typed))
		}
	}

	c.logger.DebugContext(ctx, "completion plan created", "operator", req.OperatorName(), "prompt", p.Name())
	return domain.Proceed(p, "created"), nil
}

// Defaults returns the standard backends in registration order. With the
// default latest-first policy Redirect is offered requests before Completion,
// and the folding backends always follow Completion.
func Defaults(completer ports.Completer, opts ...CompletionOption) []ports.Handler {
	return []ports.Handler{
		NewCompletion(completer, opts...),
		NewContext(),
		NewExemplar(),
		NewStrategy(),
		NewGuard(),
		Redirect{},
	}
}
