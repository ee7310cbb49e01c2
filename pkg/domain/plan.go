package domain

import (
	"context"
	"sync"
)

// Sign is one audit entry: which handler touched a plan, and why.
type Sign struct {
	Handler string `json:"handler"`
	Note    string `json:"note"`
}

// Plan is a deferred, inspectable unit of work produced by a handler.
type Plan interface {
	// Sign appends an audit entry.
	Sign(handler, note string)
	// Signs returns a copy of the audit trail.
	Signs() []Sign
	// Final reports whether dispatch should stop escalating to further handlers.
	Final() bool
	// MarkFinal sets the final flag.
	MarkFinal()
	// Execute performs the deferred work.
	Execute(ctx context.Context) (any, error)
}

// AuditTrail implements the bookkeeping half of Plan. Embed it in concrete plans.
type AuditTrail struct {
	mu    sync.Mutex
	signs []Sign
	final bool
}

// Sign appends an audit entry.
func (a *AuditTrail) Sign(handler, note string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signs = append(a.signs, Sign{Handler: handler, Note: note})
}

// Signs returns a copy of the audit trail.
func (a *AuditTrail) Signs() []Sign {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Sign(nil), a.signs...)
}

// Final reports whether the plan is final.
func (a *AuditTrail) Final() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.final
}

// MarkFinal marks the plan final.
func (a *AuditTrail) MarkFinal() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.final = true
}
