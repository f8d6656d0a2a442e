package entitycache

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/grafbase/gatewaycore/internal/executor"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
)

// CachingClient decorates an executor.SubgraphClient with the entity
// cache: a fetch to a subgraph whose EntityCacheTTL is non-zero first
// consults Store, and on a miss writes the result back before returning
// it. Subgraphs with no configured TTL bypass the cache entirely, so
// wrapping every subgraph's client in a CachingClient is always safe.
type CachingClient struct {
	Next  executor.SubgraphClient
	Store Cache

	// HeaderCacheKeyHeaders lists the (lower-cased) outgoing gRPC metadata
	// keys whose values vary the cache key — e.g. a tenant or
	// locale header a subgraph's resolvers branch on. Headers not named
	// here never affect cache keys even if forwarded to the subgraph.
	HeaderCacheKeyHeaders []string
}

func (c *CachingClient) Execute(ctx context.Context, sg schema.Subgraph, partition solver.PartitionID, document string, variables map[string]any) (map[string]any, []executor.SubgraphErrorEntry, error) {
	ttl := sg.EntityCacheTTL()
	if ttl <= 0 || c.Store == nil {
		return c.Next.Execute(ctx, sg, partition, document, variables)
	}

	key := Key(sg.Name(), document, representationsOf(variables), c.headerCacheKey(ctx))
	if raw, ok, err := c.Store.Get(ctx, key); err == nil && ok {
		var e cachedEntry
		if err := json.Unmarshal(raw, &e); err == nil {
			return e.Data, e.Errors, nil
		}
	}

	data, errs, err := c.Next.Execute(ctx, sg, partition, document, variables)
	if err != nil || len(errs) > 0 {
		// Only cache clean responses: a partial/error result cached now
		// would keep serving that error for the rest of the TTL.
		return data, errs, err
	}

	if raw, merr := json.Marshal(cachedEntry{Data: data, Errors: errs}); merr == nil {
		_ = c.Store.Set(ctx, key, raw, ttl)
	}
	return data, errs, nil
}

type cachedEntry struct {
	Data   map[string]any               `json:"data"`
	Errors []executor.SubgraphErrorEntry `json:"errors,omitempty"`
}

func representationsOf(variables map[string]any) []map[string]any {
	raw, ok := variables["representations"].([]map[string]any)
	if !ok {
		return nil
	}
	return raw
}

func (c *CachingClient) headerCacheKey(ctx context.Context) string {
	if len(c.HeaderCacheKeyHeaders) == 0 {
		return ""
	}
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, h := range c.HeaderCacheKeyHeaders {
		b.WriteString(h)
		b.WriteByte('=')
		b.WriteString(strings.Join(md.Get(h), ","))
		b.WriteByte(';')
	}
	return b.String()
}
