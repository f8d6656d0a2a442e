package entitycache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache is an in-process Cache, suitable for a single gateway instance
// or as the fallback when no Redis endpoint is configured. Entries expire
// lazily: a Get past its TTL is treated as a miss and evicted.
type LRUCache struct {
	mu    sync.Mutex
	items *lru.Cache[string, lruEntry]
}

type lruEntry struct {
	value   []byte
	expires time.Time
}

// NewLRUCache builds an LRUCache holding up to size entries.
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{items: c}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expires) {
		c.items.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *LRUCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Add(key, lruEntry{value: value, expires: time.Now().Add(ttl)})
	return nil
}
