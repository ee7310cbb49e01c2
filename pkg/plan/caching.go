package plan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// CachingCompleter serves repeated conversations from a CompletionCache.
// Concurrent identical conversations share one upstream call. Cache failures
// are logged and never fail the completion.
type CachingCompleter struct {
	next   ports.Completer
	cache  ports.CompletionCache
	group  singleflight.Group
	logger *slog.Logger
}

// CachingOption configures a CachingCompleter.
type CachingOption func(*CachingCompleter)

// WithCacheLogger sets the logger used to report cache failures.
func WithCacheLogger(logger *slog.Logger) CachingOption {
	return func(c *CachingCompleter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCachingCompleter wraps next with cache.
func NewCachingCompleter(next ports.Completer, cache ports.CompletionCache, opts ...CachingOption) *CachingCompleter {
	c := &CachingCompleter{
		next:   next,
		cache:  cache,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheKey is the hex SHA-256 of the roles and contents of messages.
func CacheKey(messages []domain.Message) string {
	h := sha256.New()
	for _, m := range messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Complete returns the cached reply for messages or asks the wrapped completer.
func (c *CachingCompleter) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	key := CacheKey(messages)

	reply, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "completion cache read failed", "key", key, "err", err)
	} else if ok {
		c.logger.DebugContext(ctx, "completion cache hit", "key", key)
		return reply, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		reply, err := c.next.Complete(ctx, messages)
		if err != nil {
			return "", err
		}
		if err := c.cache.Put(ctx, key, reply); err != nil {
			c.logger.WarnContext(ctx, "completion cache write failed", "key", key, "err", err)
		}
		return reply, nil
	})
	if err != nil {
		return "", err
	}
	c.logger.DebugContext(ctx, "completion cache miss", "key", key, "shared", shared)
	return v.(string), nil
}
