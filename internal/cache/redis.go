// Package cache provides the Redis access layer: the change-event slot
// and token-bucket rate limits.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pool defaults. Every open SSE stream polls the event slot on its own
// tick, so the pool keeps a few idle connections warm.
const (
	defaultPoolSize     = 20
	defaultMinIdleConns = 4
	defaultDialTimeout  = 5 * time.Second
	poolTimeout         = 4 * time.Second
	connMaxIdleTime     = 5 * time.Minute
)

// Options configures the Redis connection. Zero values use the defaults.
type Options struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
}

func (o Options) redisOptions() (*redis.Options, error) {
	opt, err := redis.ParseURL(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = cmpOr(o.PoolSize, defaultPoolSize)
	opt.MinIdleConns = cmpOr(o.MinIdleConns, defaultMinIdleConns)
	opt.DialTimeout = cmpOr(o.DialTimeout, defaultDialTimeout)
	opt.PoolTimeout = poolTimeout
	opt.ConnMaxIdleTime = connMaxIdleTime
	if opt.MinIdleConns > opt.PoolSize {
		opt.MinIdleConns = opt.PoolSize
	}
	return opt, nil
}

func cmpOr[T int | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}

// Cache wraps the shared Redis client.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection with a PING.
func New(ctx context.Context, opts Options) (*Cache, error) {
	opt, err := opts.redisOptions()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", opt.Addr, err)
	}
	return &Cache{client: client}, nil
}

// Ping checks Redis connectivity. Used by the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
