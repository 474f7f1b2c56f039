package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeus-Eternal/AI-Karen-sub017/memory"
)

func TestRistrettoQueryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, err := memory.NewRistrettoQueryCache()
	require.NoError(t, err)
	defer cache.Close()

	records := []memory.MemoryRecord{{ID: "r1", Content: "hello"}}
	require.NoError(t, cache.Set(ctx, "t1", "key", records, time.Minute))

	got, ok := cache.Get(ctx, "t1", "key")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)

	// The cache hands out copies.
	got[0].Content = "mutated"
	again, ok := cache.Get(ctx, "t1", "key")
	require.True(t, ok)
	assert.Equal(t, "hello", again[0].Content)
}

func TestRistrettoQueryCacheMiss(t *testing.T) {
	ctx := context.Background()
	cache, err := memory.NewRistrettoQueryCache()
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.Get(ctx, "t1", "absent")
	assert.False(t, ok)
}

func TestRistrettoQueryCacheInvalidatePerTenant(t *testing.T) {
	ctx := context.Background()
	cache, err := memory.NewRistrettoQueryCache()
	require.NoError(t, err)
	defer cache.Close()

	records := []memory.MemoryRecord{{ID: "r1"}}
	require.NoError(t, cache.Set(ctx, "t1", "key", records, time.Minute))
	require.NoError(t, cache.Set(ctx, "t2", "key", records, time.Minute))

	require.NoError(t, cache.Invalidate(ctx, "t1"))

	_, ok := cache.Get(ctx, "t1", "key")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "t2", "key")
	assert.True(t, ok)
}

func TestRistrettoQueryCacheCachesEmptyResults(t *testing.T) {
	ctx := context.Background()
	cache, err := memory.NewRistrettoQueryCache()
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Set(ctx, "t1", "key", []memory.MemoryRecord{}, time.Minute))

	got, ok := cache.Get(ctx, "t1", "key")
	assert.True(t, ok)
	assert.Empty(t, got)
}
