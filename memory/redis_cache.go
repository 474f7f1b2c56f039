package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
)

const redisQueryKeyPrefix = "memory_query"

type (
	// RedisQueryCache is a QueryCache over Redis, for deployments that
	// share query results across processes. All failures degrade to a
	// cache miss; the engine never sees them as errors worth failing for.
	RedisQueryCache struct {
		rdb redis.UniversalClient
	}
)

var (
	_ QueryCache = (*RedisQueryCache)(nil)
)

func NewRedisQueryCache(rdb redis.UniversalClient) *RedisQueryCache {
	return &RedisQueryCache{rdb: rdb}
}

func (c *RedisQueryCache) Get(ctx context.Context, tenantID string, key string) ([]MemoryRecord, bool) {
	payload, err := c.rdb.Get(ctx, c.fullKey(tenantID, key)).Bytes()
	if err != nil {
		return nil, false
	}

	var records []MemoryRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false
	}
	return records, true
}

func (c *RedisQueryCache) Set(ctx context.Context, tenantID string, key string, records []MemoryRecord, ttl time.Duration) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize cached query result")
	}
	if err := c.rdb.Set(ctx, c.fullKey(tenantID, key), payload, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to write query cache")
	}
	return nil
}

func (c *RedisQueryCache) Invalidate(ctx context.Context, tenantID string) error {
	pattern := fmt.Sprintf("%s:%s:*", redisQueryKeyPrefix, tenantID)
	iter := c.rdb.Scan(ctx, 0, pattern, 128).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return errors.Wrapf(err, "failed to drop cached query %s", iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrapf(err, "failed to scan query cache keys")
	}
	return nil
}

func (c *RedisQueryCache) fullKey(tenantID string, key string) string {
	return fmt.Sprintf("%s:%s:%s", redisQueryKeyPrefix, tenantID, key)
}
