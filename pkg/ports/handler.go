package ports

import (
	"context"
	"reflect"

	"github.com/aretw0/semop/pkg/domain"
)

// Handler is the capability shared by value types and backends.
//
// Handle receives the request, the running dispatcher and the current plan (nil
// until some handler produced one). It returns an Outcome: Declined leaves the
// plan untouched, Continue and Final replace it. A non-nil error aborts the
// whole dispatch.
type Handler interface {
	Handle(ctx context.Context, req *domain.Request, d Dispatcher, current domain.Plan) (domain.Outcome, error)
}

// Named lets a handler choose its identity. Handlers without it are named
// after their Go type.
type Named interface {
	Name() string
}

// Dependent declares handlers (by name) that must run before this one when
// both take part in the same dispatch.
type Dependent interface {
	Dependencies() []string
}

// HandlerFunc adapts a function to a named Handler.
type HandlerFunc struct {
	ID   string
	Deps []string
	Fn   func(ctx context.Context, req *domain.Request, d Dispatcher, current domain.Plan) (domain.Outcome, error)
}

func (h HandlerFunc) Name() string { return h.ID }

func (h HandlerFunc) Dependencies() []string { return h.Deps }

func (h HandlerFunc) Handle(ctx context.Context, req *domain.Request, d Dispatcher, current domain.Plan) (domain.Outcome, error) {
	return h.Fn(ctx, req, d, current)
}

// HandlerName returns the identity of h.
func HandlerName(h Handler) string {
	if n, ok := h.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(h)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// DependenciesOf returns the declared dependencies of h, if any.
func DependenciesOf(h Handler) []string {
	if d, ok := h.(Dependent); ok {
		return d.Dependencies()
	}
	return nil
}
