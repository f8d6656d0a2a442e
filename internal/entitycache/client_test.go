package entitycache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/entitycache"
	"github.com/grafbase/gatewaycore/internal/executor"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
)

const productsSDL = `
schema { query: Query }
type Query { products: [Product] }
type Product @key(fields: "id") { id: ID! name: String }
`

func buildSubgraph(t *testing.T, ttl time.Duration) schema.Subgraph {
	t.Helper()
	b := schema.NewBuilder()
	b.AddSubgraph(schema.SubgraphInput{Name: "products", URL: "http://products.local/graphql", SDL: productsSDL, Timeout: time.Second, EntityCacheTTL: ttl})
	s, err := b.Build()
	require.NoError(t, err)
	id, ok := s.LookupSubgraph("products")
	require.True(t, ok)
	return s.Subgraph(id)
}

type countingClient struct {
	calls int
	data  map[string]any
}

func (c *countingClient) Execute(context.Context, schema.Subgraph, solver.PartitionID, string, map[string]any) (map[string]any, []executor.SubgraphErrorEntry, error) {
	c.calls++
	return c.data, nil, nil
}

func TestCachingClient_HitsAvoidSecondCall(t *testing.T) {
	sg := buildSubgraph(t, time.Minute)
	inner := &countingClient{data: map[string]any{"name": "Widget"}}
	store, err := entitycache.NewLRUCache(8)
	require.NoError(t, err)
	c := &entitycache.CachingClient{Next: inner, Store: store}

	ctx := t.Context()
	variables := map[string]any{"representations": []map[string]any{{"__typename": "Product", "id": "1"}}}

	data1, _, err := c.Execute(ctx, sg, 0, "query{_entities{name}}", variables)
	require.NoError(t, err)
	require.Equal(t, "Widget", data1["name"])
	require.Equal(t, 1, inner.calls)

	data2, _, err := c.Execute(ctx, sg, 0, "query{_entities{name}}", variables)
	require.NoError(t, err)
	require.Equal(t, "Widget", data2["name"])
	require.Equal(t, 1, inner.calls, "second fetch should be served from cache")
}

func TestCachingClient_BypassesWhenTTLUnset(t *testing.T) {
	sg := buildSubgraph(t, 0)
	inner := &countingClient{data: map[string]any{"name": "Widget"}}
	store, err := entitycache.NewLRUCache(8)
	require.NoError(t, err)
	c := &entitycache.CachingClient{Next: inner, Store: store}

	ctx := t.Context()
	variables := map[string]any{"representations": []map[string]any{{"__typename": "Product", "id": "1"}}}

	_, _, err = c.Execute(ctx, sg, 0, "query{_entities{name}}", variables)
	require.NoError(t, err)
	_, _, err = c.Execute(ctx, sg, 0, "query{_entities{name}}", variables)
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls, "uncached subgraph should hit the client every time")
}
