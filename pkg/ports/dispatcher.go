package ports

import (
	"context"

	"github.com/aretw0/semop/pkg/domain"
)

// Dispatcher is the view of a running dispatch given to handlers.
type Dispatcher interface {
	// Dispatch resolves a nested request with the same registry, scopes and policy.
	Dispatch(ctx context.Context, req *domain.Request) (domain.Plan, error)

	// Scopes exposes the active context entries, read-only.
	Scopes() ScopeReader

	// Detach returns a dispatcher bound to a copy of the entries in scope now,
	// minus the given kinds. Plans that dispatch while they execute use it:
	// by then the scopes of the compiling call are closed.
	Detach(drop ...domain.EntryKind) Dispatcher
}

// ScopeReader reads the current contents of the context stacks.
// Every method returns a copy; reading never mutates the stacks.
type ScopeReader interface {
	// Texts returns free and role-scoped context entries, oldest first.
	Texts() []domain.Entry
	Exemplars() []domain.Exemplar
	Strategies() []string
	Guards() []domain.Guard
}
