// Package entitycache implements the "GET-cacheable partition" lookup from
// spec.md §4.5/§4.8: a content-addressed cache of per-entity subgraph
// responses keyed by (subgraph, query fingerprint, representation
// fingerprint, header cache key), consulted before a cacheable partition's
// request is sent and populated after it returns. Two Cache
// implementations are provided — an in-process LRU
// (hashicorp/golang-lru/v2) and a Redis-backed one (redis/go-redis/v9) for
// sharing the cache across gateway instances, matching spec.md §5's
// "Redis single-connection per op" requirement for process-wide caches.
package entitycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// Cache stores and retrieves raw subgraph response bytes keyed by a
// caller-computed fingerprint. Implementations need not know anything
// about GraphQL: the key already encodes subgraph identity, query shape
// and representation contents.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key derives the cache key for one partition fetch from its subgraph
// name, the document sent to it, the representations being resolved (nil
// for a non-entity fetch), and the subset of request headers the subgraph
// declared cache-relevant. The representation list is sorted by its own
// JSON encoding first so that argument order in the solved plan never
// changes the key for an otherwise identical set of entities.
func Key(subgraph, document string, representations []map[string]any, headerCacheKey string) string {
	h := sha256.New()
	h.Write([]byte(subgraph))
	h.Write([]byte{0})
	h.Write([]byte(document))
	h.Write([]byte{0})
	h.Write([]byte(headerCacheKey))
	h.Write([]byte{0})

	encoded := make([]string, len(representations))
	for i, rep := range representations {
		b, _ := json.Marshal(rep)
		encoded[i] = string(b)
	}
	sort.Strings(encoded)
	for _, e := range encoded {
		h.Write([]byte(e))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

