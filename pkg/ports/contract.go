package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCompletionCacheContract runs a suite of tests to verify that a CompletionCache
// implementation adheres to the defined interface contract.
func RunCompletionCacheContract(t *testing.T, cache CompletionCache) {
	ctx := context.Background()
	key := "contract-test-key-" + time.Now().Format("20060102150405")

	t.Run("Miss", func(t *testing.T) {
		reply, ok, err := cache.Get(ctx, "missing-"+key)
		require.NoError(t, err, "Get on a missing key should not return error")
		assert.False(t, ok)
		assert.Empty(t, reply)
	})

	t.Run("Put and Get", func(t *testing.T) {
		err := cache.Put(ctx, key, "Paris")
		require.NoError(t, err, "Put should not return error")

		reply, ok, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Paris", reply)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, key+"-ow", "first"))
		require.NoError(t, cache.Put(ctx, key+"-ow", "second"))

		reply, ok, err := cache.Get(ctx, key+"-ow")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "second", reply)
	})

	t.Run("Empty Reply", func(t *testing.T) {
		// An empty reply is a valid cached value, distinct from a miss.
		require.NoError(t, cache.Put(ctx, key+"-empty", ""))

		reply, ok, err := cache.Get(ctx, key+"-empty")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, reply)
	})
}
