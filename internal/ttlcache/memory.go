package ttlcache

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries bounds a MemoryCache created with a non-positive size.
const DefaultMaxEntries = 1024

type cacheItem struct {
	val      any
	storedAt time.Time
	ttl      time.Duration
}

// MemoryCache is a process-local Cache. Expiry is lazy: stale entries are
// dropped when read. The LRU bound keeps memory flat when query keys vary.
type MemoryCache struct {
	mu    sync.Mutex
	items *lru.Cache[string, cacheItem]
	now   func() time.Time
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	items, _ := lru.New[string, cacheItem](maxEntries)
	return &MemoryCache{items: items, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items.Get(key)
	if ok && c.now().Sub(it.storedAt) > it.ttl {
		c.items.Remove(key)
		ok = false
	}
	observe("memory", ok)
	if !ok {
		return nil, false
	}
	return it.val, true
}

func (c *MemoryCache) Set(_ context.Context, key string, v any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	c.items.Add(key, cacheItem{val: v, storedAt: c.now(), ttl: ttl})
	c.mu.Unlock()
}

func (c *MemoryCache) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	c.items.Remove(key)
	c.mu.Unlock()
}

func (c *MemoryCache) InvalidatePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.items.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.items.Remove(k)
		}
	}
}

func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	c.items.Purge()
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	return c.items.Len()
}
