package entitycache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/entitycache"
)

func TestKey_StableAcrossRepresentationOrder(t *testing.T) {
	reps1 := []map[string]any{{"__typename": "Product", "id": "1"}, {"__typename": "Product", "id": "2"}}
	reps2 := []map[string]any{{"__typename": "Product", "id": "2"}, {"__typename": "Product", "id": "1"}}

	k1 := entitycache.Key("products", "query{_entities{id}}", reps1, "")
	k2 := entitycache.Key("products", "query{_entities{id}}", reps2, "")
	require.Equal(t, k1, k2)
}

func TestKey_DiffersByDocumentAndSubgraph(t *testing.T) {
	reps := []map[string]any{{"__typename": "Product", "id": "1"}}
	base := entitycache.Key("products", "query{_entities{id}}", reps, "")

	require.NotEqual(t, base, entitycache.Key("products", "query{_entities{name}}", reps, ""))
	require.NotEqual(t, base, entitycache.Key("reviews", "query{_entities{id}}", reps, ""))
	require.NotEqual(t, base, entitycache.Key("products", "query{_entities{id}}", reps, "tenant=acme;"))
}

func TestLRUCache_GetSetExpiry(t *testing.T) {
	c, err := entitycache.NewLRUCache(8)
	require.NoError(t, err)
	ctx := t.Context()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)

	require.NoError(t, c.Set(ctx, "expired", []byte("v"), -time.Second))
	_, ok, err = c.Get(ctx, "expired")
	require.NoError(t, err)
	require.False(t, ok)
}
