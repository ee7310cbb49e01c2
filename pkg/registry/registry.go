package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ports"
)

// ErrNilHandler is returned when registering a nil handler.
var ErrNilHandler = errors.New("cannot register a nil handler")

// Registry manages the registered backend handlers, in registration order.
// Safe for concurrent use; List returns snapshots.
type Registry struct {
	mu       sync.RWMutex
	handlers []ports.Handler
	index    map[string]int
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

var defaultRegistry = New()

// Default returns the process-wide registry. It starts empty and changes only
// through explicit Register and Unregister calls.
func Default() *Registry {
	return defaultRegistry
}

// Register appends a backend. Names must be unique.
func (r *Registry) Register(h ports.Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	name := ports.HandlerName(h)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateHandler, name)
	}
	r.index[name] = len(r.handlers)
	r.handlers = append(r.handlers, h)
	return nil
}

// MustRegister is like Register but panics on error. Intended for package init.
func (r *Registry) MustRegister(handlers ...ports.Handler) {
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			panic(err)
		}
	}
}

// Unregister removes a backend by name, keeping the order of the others.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrHandlerNotFound, name)
	}

	r.handlers = append(r.handlers[:pos], r.handlers[pos+1:]...)
	delete(r.index, name)
	for i := pos; i < len(r.handlers); i++ {
		r.index[ports.HandlerName(r.handlers[i])] = i
	}
	return nil
}

// Lookup returns the backend registered under name.
func (r *Registry) Lookup(name string) (ports.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.handlers[pos], true
}

// List returns the registered backends in registration order.
func (r *Registry) List() []ports.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Names returns the registered backend names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.handlers))
	for i, h := range r.handlers {
		names[i] = ports.HandlerName(h)
	}
	return names
}

// Len returns the number of registered backends.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
