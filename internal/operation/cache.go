package operation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedOperation is a Bind result keyed by (document hash, operation name,
// variable shape), reused across requests that share the same shape with
// different variable values, per spec.md §4.2 ("operations are cached keyed
// by document and variable shape, not by variable values").
type CachedOperation struct {
	Operation *Operation
}

// Cache memoizes Bind results. It is safe for concurrent use: the
// underlying lru.Cache is itself lock-protected.
type Cache struct {
	binder *Binder
	lru    *lru.Cache[string, *CachedOperation]
}

// NewCache builds a Cache of the given capacity (number of distinct bound
// operations retained). A size of 0 disables caching — every call binds
// fresh, useful for tests.
func NewCache(binder *Binder, size int) (*Cache, error) {
	if size <= 0 {
		return &Cache{binder: binder}, nil
	}
	c, err := lru.New[string, *CachedOperation](size)
	if err != nil {
		return nil, err
	}
	return &Cache{binder: binder, lru: c}, nil
}

// Bind returns a cached Operation if one exists for this document, operation
// name and variable shape, else binds, validates and caches a fresh one.
// Per-request variable values are never part of the cache key: only which
// variables were supplied and, for APQ reuse across callers, their presence
// matters, not their contents.
func (c *Cache) Bind(_ context.Context, document, operationName string, variables map[string]any) (*Operation, error) {
	if c.lru == nil {
		return c.binder.Bind(document, operationName, variables)
	}
	key := cacheKey(document, operationName, variables)
	if cached, ok := c.lru.Get(key); ok {
		return cached.Operation, nil
	}
	op, err := c.binder.Bind(document, operationName, variables)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, &CachedOperation{Operation: op})
	return op, nil
}

// cacheKey hashes the document text together with the operation name and
// the sorted set of variable names supplied (the "shape"), so that two
// requests for the same operation with different literal variable values
// share one bound Operation.
func cacheKey(document, operationName string, variables map[string]any) string {
	names := make([]string, 0, len(variables))
	for k := range variables {
		names = append(names, k)
	}
	sort.Strings(names)

	h := sha256.New()
	h.Write([]byte(document))
	h.Write([]byte{0})
	h.Write([]byte(operationName))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(names, ",")))
	return hex.EncodeToString(h.Sum(nil))
}
