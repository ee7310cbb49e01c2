package ports

import (
	"context"

	"github.com/aretw0/semop/pkg/domain"
)

// Completer turns a rendered conversation into the reply of a text-generation service.
// Implementations own their timeouts and retry policy; ctx carries cancellation.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message) (string, error)
}

// CompleterFunc adapts a function to a Completer.
type CompleterFunc func(ctx context.Context, messages []domain.Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	return f(ctx, messages)
}

// CompletionCache stores completer replies by key.
type CompletionCache interface {
	// Get returns the cached reply and true, or "" and false on a miss.
	Get(ctx context.Context, key string) (string, bool, error)

	// Put stores a reply under key.
	Put(ctx context.Context, key, reply string) error
}
