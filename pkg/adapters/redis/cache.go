// Package redis provides a completion cache backed by Redis, so that
// several processes share the replies of identical conversations.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Cache implements ports.CompletionCache using Redis.
//
// Replies are stored as plain strings under prefix+key. A sorted set at
// prefix+"index" tracks the keys by expiry so Keys and Clear work without a
// SCAN. Every Put prunes expired members, so the index never holds more than
// the live replies plus those that expired since the last write.
type Cache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// neverExpires is the index score of replies stored without a TTL (2100-01-01).
const neverExpires = 4102444800

type Option func(*Cache)

// WithTTL sets the expiration of cached replies. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a cache with its own client.
func New(address, password string, db int, opts ...Option) *Cache {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a cache from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Cache {
	cache := &Cache{
		client: client,
		prefix: "semop:completion:",
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) indexKey() string {
	return c.prefix + "index"
}

// Get returns the cached reply for key.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, true, nil
}

// Put stores reply under key.
func (c *Cache) Put(ctx context.Context, key string, reply string) error {
	now := time.Now()
	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.key(key), reply, c.ttl)
	pipe.ZRemRangeByScore(ctx, c.indexKey(), "-inf", fmt.Sprintf("%d", now.Unix()))

	score := float64(now.Add(c.ttl).Unix())
	if c.ttl == 0 {
		score = neverExpires
	}
	pipe.ZAdd(ctx, c.indexKey(), backend.Z{Score: score, Member: key})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Delete removes a cached reply.
func (c *Cache) Delete(ctx context.Context, key string) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, c.key(key))
	pipe.ZRem(ctx, c.indexKey(), key)
	_, err := pipe.Exec(ctx)
	return err
}

// Keys lists the cached keys, pruning expired ones from the index first.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	now := time.Now().Unix()
	if err := c.client.ZRemRangeByScore(ctx, c.indexKey(), "-inf", fmt.Sprintf("%d", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired replies: %w", err)
	}
	keys, err := c.client.ZRange(ctx, c.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	return keys, nil
}

// Clear removes every indexed reply and the index itself. It returns the
// number of index entries dropped.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	keys, err := c.client.ZRange(ctx, c.indexKey(), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list replies: %w", err)
	}
	pipe := c.client.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, c.key(k))
	}
	pipe.Del(ctx, c.indexKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear redis cache: %w", err)
	}
	return len(keys), nil
}

// Close closes the redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
