package entitycache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Cache backed by a shared Redis instance, for sharing
// entity-cache hits across every gateway process behind the same
// deployment rather than only within one process's LRU. Grounded on
// _examples/volaticloud-volaticloud's RedisPubSub: a thin wrapper over a
// single *redis.Client with the calling convention (plain
// context.Context, []byte payloads) matching the rest of this gateway's
// cache/client traits.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an already-configured *redis.Client. prefix
// namespaces keys so a shared Redis instance can serve more than one
// gateway deployment without collisions.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}
