// Package scope holds the context stacks handlers read during dispatch.
//
// Four stacks exist: free text (plain and role-scoped), exemplars, strategies
// and guards. Entering a scope pushes entries onto the matching stacks and
// returns a Handle; exiting pops exactly those entries. Scopes must be closed
// in reverse order of opening.
//
//	err := scope.Default().Do([]domain.Entry{domain.TextEntry("formal tone")}, func() error {
//		plan, err := engine.Compile(ctx, ops.Resolve, "hello")
//		...
//	})
package scope

import (
	"fmt"
	"sync"

	"github.com/aretw0/semop/pkg/domain"
)

// Handle identifies one entered scope.
type Handle struct {
	id     uint64
	counts map[domain.EntryKind]int
	closed bool
}

// ID returns the sequence number of the scope.
func (h *Handle) ID() uint64 { return h.id }

// Stack is a set of per-kind context stacks. The zero value is not usable; use New.
type Stack struct {
	mu         sync.RWMutex
	seq        uint64
	open       []*Handle
	texts      []domain.Entry
	exemplars  []domain.Exemplar
	strategies []string
	guards     []domain.Guard
}

// New returns an empty, isolated stack.
func New() *Stack {
	return &Stack{}
}

var defaultStack = New()

// Default returns the process-wide stack.
func Default() *Stack {
	return defaultStack
}

// Enter pushes entries onto their stacks and returns the handle that pops them.
// Entries of an unknown kind are ignored.
func (s *Stack) Enter(entries ...domain.Entry) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	h := &Handle{id: s.seq, counts: make(map[domain.EntryKind]int)}
	for _, e := range entries {
		switch e.Kind {
		case domain.KindText, domain.KindRole:
			s.texts = append(s.texts, e)
			h.counts[domain.KindText]++
		case domain.KindExemplar:
			if e.Exemplar == nil {
				continue
			}
			s.exemplars = append(s.exemplars, *e.Exemplar)
			h.counts[domain.KindExemplar]++
		case domain.KindStrategy:
			s.strategies = append(s.strategies, e.Strategy)
			h.counts[domain.KindStrategy]++
		case domain.KindGuard:
			if e.Guard == nil {
				continue
			}
			s.guards = append(s.guards, *e.Guard)
			h.counts[domain.KindGuard]++
		}
	}
	s.open = append(s.open, h)
	return h
}

// Exit pops the entries pushed by h. Closing anything but the innermost open
// scope panics with an error wrapping domain.ErrScopeOrder.
func (s *Stack) Exit(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h == nil || h.closed {
		panic(fmt.Errorf("%w: scope already closed", domain.ErrScopeOrder))
	}
	if len(s.open) == 0 || s.open[len(s.open)-1] != h {
		panic(fmt.Errorf("%w: scope %d is not the innermost open scope", domain.ErrScopeOrder, h.id))
	}

	s.open = s.open[:len(s.open)-1]
	s.texts = s.texts[:len(s.texts)-h.counts[domain.KindText]]
	s.exemplars = s.exemplars[:len(s.exemplars)-h.counts[domain.KindExemplar]]
	s.strategies = s.strategies[:len(s.strategies)-h.counts[domain.KindStrategy]]
	s.guards = s.guards[:len(s.guards)-h.counts[domain.KindGuard]]
	h.closed = true
}

// Do runs fn inside a scope holding entries. The scope is exited on every
// path out of fn, panics included.
func (s *Stack) Do(entries []domain.Entry, fn func() error) error {
	h := s.Enter(entries...)
	defer s.Exit(h)
	return fn()
}

// Depth returns the number of open scopes.
func (s *Stack) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.open)
}

// Texts returns the free and role-scoped text entries, outermost first.
func (s *Stack) Texts() []domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Entry(nil), s.texts...)
}

// Exemplars returns the active exemplars, outermost first.
func (s *Stack) Exemplars() []domain.Exemplar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Exemplar(nil), s.exemplars...)
}

// Strategies returns the active strategy hints, outermost first.
func (s *Stack) Strategies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.strategies...)
}

// Guards returns the active guards, outermost first.
func (s *Stack) Guards() []domain.Guard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Guard(nil), s.guards...)
}

// Snapshot is a consistent copy of all four stacks.
type Snapshot struct {
	Texts      []domain.Entry
	Exemplars  []domain.Exemplar
	Strategies []string
	Guards     []domain.Guard
}

// Empty reports whether no entry is active.
func (s Snapshot) Empty() bool {
	return len(s.Texts) == 0 && len(s.Exemplars) == 0 && len(s.Strategies) == 0 && len(s.Guards) == 0
}

// Snapshot copies all stacks under a single read lock.
func (s *Stack) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Texts:      append([]domain.Entry(nil), s.texts...),
		Exemplars:  append([]domain.Exemplar(nil), s.exemplars...),
		Strategies: append([]string(nil), s.strategies...),
		Guards:     append([]domain.Guard(nil), s.guards...),
	}
}
