// Package marketdata caches completed backtest run results in Redis,
// keyed by a hash of the run's configuration. It is pure cache: Get
// reports a missing key as ErrNoData and any other Redis failure as
// ErrCacheError, and NewCache fails when Redis cannot be reached, so a
// caller can fall back to resimulating rather than failing.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a Redis-backed store for serialized run results.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache dials Redis and verifies connectivity with a short ping.
func NewCache(config CacheConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: config.RedisURL,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, ttl: config.TTL}, nil
}

// Get returns the cached result bytes for key, or ErrNoData on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, "result:"+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheError, err)
	}
	return data, nil
}

// Set stores result bytes under key with the cache's configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, "result:"+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheError, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
