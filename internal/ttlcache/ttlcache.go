// Package ttlcache is a small key/value cache with per-entry expiry and
// prefix invalidation. It fronts read-heavy queries against the document
// store; it is never used for comments.
package ttlcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultTTL applies when Set is called with a non-positive ttl.
const DefaultTTL = time.Minute

// Cache is the contract shared by the local and Redis backends.
// Implementations must be safe for concurrent use. Backend failures are
// treated as misses; a cache never fails the request it serves.
type Cache interface {
	// Get never returns an entry older than its ttl.
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, v any, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
	// InvalidatePrefix removes every key starting with prefix.
	InvalidatePrefix(ctx context.Context, prefix string)
	Clear(ctx context.Context)
}

var requests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "portfolio",
	Subsystem: "cache",
	Name:      "requests_total",
	Help:      "Cache lookups by backend and result.",
}, []string{"backend", "result"})

func observe(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	requests.WithLabelValues(backend, result).Inc()
}

// Load returns the cached value for key, or calls load and caches its
// result for ttl. Values that went through a serialising backend come back
// as JSON and are decoded into T. A MemoryCache hit returns the stored value
// itself, so callers must not modify slices or maps inside it.
func Load[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(ctx, key); ok {
		if out, ok := decode[T](v); ok {
			return out, nil
		}
	}
	out, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(ctx, key, out, ttl)
	return out, nil
}

func decode[T any](v any) (T, bool) {
	var out T
	if typed, ok := v.(T); ok {
		return typed, true
	}
	var raw []byte
	switch x := v.(type) {
	case json.RawMessage:
		raw = x
	case []byte:
		raw = x
	default:
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}
