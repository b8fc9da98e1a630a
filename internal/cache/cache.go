package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// IncrWithExpiry increments key and starts its expiry on the first increment
// only, so the counter covers a fixed window.
func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetOrSet returns the JSON value cached under key, or runs compute and caches
// its result for ttl. The bool reports whether the value came from the cache.
//
// A nil cache disables caching. Cache read, write and decode failures are
// logged and never returned: the value is recomputed instead. Only errors from
// compute are returned.
func GetOrSet[T any](ctx context.Context, c Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, bool, error) {
	if c != nil {
		raw, found, err := c.Get(ctx, key)
		switch {
		case err != nil:
			slog.Warn("cache get failed", "key", key, "error", err)
		case found:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, true, nil
			}
			slog.Warn("cache entry undecodable, recomputing", "key", key)
		}
	}

	v, err := compute(ctx)
	if err != nil {
		return v, false, err
	}

	if c != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			slog.Warn("cache encode failed", "key", key, "error", err)
			return v, false, nil
		}
		if err := c.Set(ctx, key, raw, ttl); err != nil {
			slog.Warn("cache set failed", "key", key, "error", err)
		}
	}
	return v, false, nil
}
