package semop

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/semop/internal/runtime"
	"github.com/aretw0/semop/pkg/backends"
	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/plan"
	"github.com/aretw0/semop/pkg/ports"
	"github.com/aretw0/semop/pkg/prompts"
	"github.com/aretw0/semop/pkg/registry"
	"github.com/aretw0/semop/pkg/scope"
)

// Version is the release of the library, overridden at link time by release builds.
var Version = "0.1.0-dev"

// Policy decides how value-bound candidates and backends are merged.
type Policy = runtime.Policy

// BackendOrder controls the order in which registered backends are offered a request.
type BackendOrder = runtime.BackendOrder

const (
	LatestFirst       = runtime.LatestFirst
	RegistrationOrder = runtime.RegistrationOrder
)

// DefaultPolicy tries value-bound candidates first, then backends latest first.
var DefaultPolicy = runtime.DefaultPolicy

// ParseBackendOrder maps "latest" and "registration" to a BackendOrder.
func ParseBackendOrder(s string) (BackendOrder, error) {
	return runtime.ParseBackendOrder(s)
}

// Engine is the high-level entry point of the library.
// It owns a backend registry, a context stack and the dispatcher built over them.
type Engine struct {
	dispatcher *runtime.Dispatcher
	registry   *registry.Registry
	scopes     *scope.Stack
	library    *prompts.Library
	completer  ports.Completer
	cache      ports.CompletionCache
	policy     runtime.Policy
	hooks      domain.LifecycleHooks
	logger     *slog.Logger

	// compile serializes dispatches: the context stack is shared by all of them.
	compile sync.Mutex
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRegistry uses r as the backend registry. The caller owns its contents:
// the default backends are not registered into it.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithScopes uses s as the context stack instead of a private one.
func WithScopes(s *scope.Stack) Option {
	return func(e *Engine) {
		e.scopes = s
	}
}

// WithCompleter sets the model used by completion plans.
func WithCompleter(c ports.Completer) Option {
	return func(e *Engine) {
		e.completer = c
	}
}

// WithCache puts a completion cache in front of the completer.
func WithCache(c ports.CompletionCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithPolicy sets the candidate ordering policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithLibrary sets the prompt templates of the completion backend.
func WithLibrary(lib *prompts.Library) Option {
	return func(e *Engine) {
		e.library = lib
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes an Engine. Without WithRegistry it registers the default
// backends (completion, context, exemplar, strategy, guard, redirect).
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{policy: runtime.DefaultPolicy}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if eng.scopes == nil {
		eng.scopes = scope.New()
	}
	if eng.library == nil {
		lib, err := prompts.Builtin()
		if err != nil {
			return nil, err
		}
		eng.library = lib
	}

	completer := eng.completer
	if completer != nil && eng.cache != nil {
		completer = plan.NewCachingCompleter(completer, eng.cache, plan.WithCacheLogger(eng.logger))
	}

	if eng.registry == nil {
		eng.registry = registry.New()
		defaults := backends.Defaults(completer,
			backends.WithLibrary(eng.library),
			backends.WithLogger(eng.logger),
		)
		for _, h := range defaults {
			if err := eng.registry.Register(h); err != nil {
				return nil, fmt.Errorf("failed to register default backends: %w", err)
			}
		}
	}

	eng.dispatcher = runtime.New(eng.registry, eng.scopes,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithPolicy(eng.policy),
	)
	return eng, nil
}

// Registry returns the backend registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Scopes returns the context stack.
func (e *Engine) Scopes() *scope.Stack {
	return e.scopes
}

// Library returns the prompt templates.
func (e *Engine) Library() *prompts.Library {
	return e.library
}

// Policy returns the candidate ordering policy.
func (e *Engine) Policy() Policy {
	return e.dispatcher.Policy()
}

// Compile dispatches req and returns the plan without executing it.
// The contexts attached to req are in scope for the duration of the dispatch.
func (e *Engine) Compile(ctx context.Context, req *domain.Request) (domain.Plan, error) {
	if req == nil || req.Operator == nil {
		return nil, fmt.Errorf("%w: request has no operator", domain.ErrInvalidCall)
	}

	e.compile.Lock()
	defer e.compile.Unlock()

	var p domain.Plan
	err := e.scopes.Do(req.Contexts, func() error {
		var err error
		p, err = e.dispatcher.Dispatch(ctx, req)
		return err
	})
	return p, err
}

// Call compiles req and executes the resulting plan.
func (e *Engine) Call(ctx context.Context, req *domain.Request) (any, error) {
	p, err := e.Compile(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx)
}

// Invoke preprocesses args for op and calls it.
func (e *Engine) Invoke(ctx context.Context, op *domain.Operator, args ...any) (any, error) {
	req, err := op.Bind(args...)
	if err != nil {
		return nil, err
	}
	return e.Call(ctx, req)
}

// Order returns the handler names in the order they would be offered req.
func (e *Engine) Order(req *domain.Request) ([]string, error) {
	return e.dispatcher.Order(req)
}

// Backends returns the registered backends in registration order.
func (e *Engine) Backends() []BackendInfo {
	handlers := e.registry.List()
	infos := make([]BackendInfo, len(handlers))
	for i, h := range handlers {
		infos[i] = BackendInfo{
			Name:         ports.HandlerName(h),
			Dependencies: ports.DependenciesOf(h),
		}
	}
	return infos
}

// Handlers returns the registered backends themselves.
func (e *Engine) Handlers() []ports.Handler {
	return e.registry.List()
}

// BackendInfo describes one registered backend.
type BackendInfo struct {
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies,omitempty"`
}
