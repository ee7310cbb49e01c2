package memory

import (
	"context"
	"sync"
)

// Cache implements ports.CompletionCache in memory.
// Safe for concurrent use.
type Cache struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewCache creates a new in-memory completion cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]string),
	}
}

// Get returns the reply stored under key.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	reply, ok := c.data[key]
	return reply, ok, nil
}

// Put stores reply under key, replacing any previous value.
func (c *Cache) Put(ctx context.Context, key string, reply string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = reply
	return nil
}

// Delete removes the reply stored under key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Len returns the number of cached replies.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
