package ttlcache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache shares cached entries between instances. Values are stored as
// JSON and returned as json.RawMessage; use Load to get typed values back.
type RedisCache struct {
	client    *redis.Client
	namespace string
	log       *zap.Logger
}

func NewRedisCache(url, namespace string, log *zap.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCache{client: redis.NewClient(opt), namespace: namespace, log: log}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(k string) string {
	return c.namespace + k
}

func (c *RedisCache) Get(ctx context.Context, key string) (any, bool) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("ttlcache: redis get", zap.String("key", key), zap.Error(err))
		}
		observe("redis", false)
		return nil, false
	}
	observe("redis", true)
	return json.RawMessage(val), true
}

func (c *RedisCache) Set(ctx context.Context, key string, v any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("ttlcache: marshal", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(key), b, ttl).Err(); err != nil {
		c.log.Warn("ttlcache: redis set", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.log.Warn("ttlcache: redis del", zap.String("key", key), zap.Error(err))
	}
}

// globEscaper quotes the characters SCAN MATCH treats as wildcards.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) {
	pattern := globEscaper.Replace(c.key(prefix)) + "*"
	iter := c.client.Scan(ctx, 0, pattern, 200).Iterator()

	batch := make([]string, 0, 200)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			c.log.Warn("ttlcache: redis del batch", zap.String("prefix", prefix), zap.Error(err))
		}
		batch = batch[:0]
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			flush()
		}
	}
	flush()
	if err := iter.Err(); err != nil {
		c.log.Warn("ttlcache: redis scan", zap.String("prefix", prefix), zap.Error(err))
	}
}

func (c *RedisCache) Clear(ctx context.Context) {
	c.InvalidatePrefix(ctx, "")
}
