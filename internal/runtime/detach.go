package runtime

import (
	"slices"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ports"
)

// frozenScopes is a fixed copy of the context stacks.
type frozenScopes struct {
	texts      []domain.Entry
	exemplars  []domain.Exemplar
	strategies []string
	guards     []domain.Guard
}

func (f *frozenScopes) Texts() []domain.Entry        { return slices.Clone(f.texts) }
func (f *frozenScopes) Exemplars() []domain.Exemplar { return slices.Clone(f.exemplars) }
func (f *frozenScopes) Strategies() []string         { return slices.Clone(f.strategies) }
func (f *frozenScopes) Guards() []domain.Guard       { return slices.Clone(f.guards) }

// Detach returns a copy of d whose scopes are frozen to what is in scope now,
// without the entries of the dropped kinds. Later Enter and Exit calls on the
// shared stack do not reach it.
func (d *Dispatcher) Detach(drop ...domain.EntryKind) ports.Dispatcher {
	keep := func(k domain.EntryKind) bool { return !slices.Contains(drop, k) }

	f := &frozenScopes{}
	if d.scopes != nil {
		for _, e := range d.scopes.Texts() {
			if keep(e.Kind) {
				f.texts = append(f.texts, e)
			}
		}
		if keep(domain.KindExemplar) {
			f.exemplars = d.scopes.Exemplars()
		}
		if keep(domain.KindStrategy) {
			f.strategies = d.scopes.Strategies()
		}
		if keep(domain.KindGuard) {
			f.guards = d.scopes.Guards()
		}
	}

	return &Dispatcher{
		backends: d.backends,
		scopes:   f,
		logger:   d.logger,
		hooks:    d.hooks,
		policy:   d.policy,
	}
}
