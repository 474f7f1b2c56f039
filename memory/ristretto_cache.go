package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
)

type (
	// RistrettoQueryCache is an in-process QueryCache. Ristretto has no
	// prefix deletion, so invalidation bumps a per-tenant generation that
	// is part of every key; orphaned entries age out through their TTL.
	RistrettoQueryCache struct {
		cache *ristretto.Cache
		gens  sync.Map // tenantID -> *atomic.Uint64
	}
)

var (
	_ QueryCache = (*RistrettoQueryCache)(nil)
)

func NewRistrettoQueryCache() (*RistrettoQueryCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     32 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create ristretto cache")
	}
	return &RistrettoQueryCache{cache: cache}, nil
}

func (c *RistrettoQueryCache) Get(ctx context.Context, tenantID string, key string) ([]MemoryRecord, bool) {
	value, ok := c.cache.Get(c.fullKey(tenantID, key))
	if !ok {
		return nil, false
	}
	records, ok := value.([]MemoryRecord)
	if !ok {
		return nil, false
	}
	return append([]MemoryRecord(nil), records...), true
}

func (c *RistrettoQueryCache) Set(ctx context.Context, tenantID string, key string, records []MemoryRecord, ttl time.Duration) error {
	stored := append([]MemoryRecord(nil), records...)
	cost := int64(1)
	for i := range stored {
		cost += int64(len(stored[i].Content))
	}
	c.cache.SetWithTTL(c.fullKey(tenantID, key), stored, cost, ttl)
	// Flush the write buffer so a following Get observes the entry.
	c.cache.Wait()
	return nil
}

func (c *RistrettoQueryCache) Invalidate(ctx context.Context, tenantID string) error {
	c.generation(tenantID).Add(1)
	return nil
}

func (c *RistrettoQueryCache) Close() {
	c.cache.Close()
}

func (c *RistrettoQueryCache) generation(tenantID string) *atomic.Uint64 {
	gen, _ := c.gens.LoadOrStore(tenantID, &atomic.Uint64{})
	return gen.(*atomic.Uint64)
}

func (c *RistrettoQueryCache) fullKey(tenantID string, key string) string {
	return fmt.Sprintf("%s#%d#%s", tenantID, c.generation(tenantID).Load(), key)
}
