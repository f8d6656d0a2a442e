package entitycache_test

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/entitycache"
)

// TestRedisCache_Integration exercises RedisCache against a real Redis
// instance. Skipped when one isn't reachable, mirroring the pubsub
// package's own Redis integration test.
func TestRedisCache_Integration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx := t.Context()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping integration test: %v", err)
	}

	c := entitycache.NewRedisCache(client, "gatewaycore-test:")
	key := "entitycache-test-key"
	defer client.Del(ctx, "gatewaycore-test:"+key)

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, key, []byte(`{"name":"Widget"}`), time.Minute))
	v, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"name":"Widget"}`, string(v))
}
