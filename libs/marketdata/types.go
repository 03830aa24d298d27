package marketdata

import "time"

// CacheConfig configures the Redis-backed run-result cache.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}
