package storage

import (
	"context"
	"sync"

	"aidance/internal/cache"
)

// CachedKV serves reads from an LRU/TTL cache in front of another KV.
// Writes go to the backend first and then drop the cached entry. A read that
// overlaps a write of the same key does not fill the cache.
type CachedKV struct {
	next  KV
	cache cache.Cache[[]byte]

	mu  sync.Mutex
	gen map[string]uint64 // bumped by every write of a key
}

func NewCachedKV(next KV, c cache.Cache[[]byte]) *CachedKV {
	return &CachedKV{next: next, cache: c, gen: make(map[string]uint64)}
}

func (c *CachedKV) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	c.mu.Lock()
	gen := c.gen[key]
	c.mu.Unlock()

	v, err := c.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen[key] == gen {
		c.cache.Set(key, v)
	}
	c.mu.Unlock()
	return v, nil
}

func (c *CachedKV) Set(ctx context.Context, key string, value []byte) error {
	defer c.invalidate(key)
	return c.next.Set(ctx, key, value)
}

func (c *CachedKV) Delete(ctx context.Context, key string) error {
	defer c.invalidate(key)
	return c.next.Delete(ctx, key)
}

func (c *CachedKV) invalidate(key string) {
	c.mu.Lock()
	c.gen[key]++
	c.cache.Delete(key)
	c.mu.Unlock()
}
