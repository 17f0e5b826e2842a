package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitTokenPrefix = "gallery:ratelimit:token:"
	rateLimitIPPrefix    = "gallery:ratelimit:ip:"
)

// RateLimitResult is the outcome of one bucket check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucket describes a token bucket: rate tokens per second, up to burst.
type bucket struct {
	key   string
	rate  float64
	burst int
}

// idleTTL is how long an untouched bucket lives: long enough to refill
// completely, after which a fresh full bucket is equivalent.
func (b bucket) idleTTL() time.Duration {
	refill := time.Duration(float64(b.burst) / b.rate * float64(time.Second))
	return max(refill, time.Second) + time.Second
}

// tokenBucketScript refills then consumes one token atomically.
// Times are in milliseconds so sub-second rates refill smoothly.
// Returns {allowed, retry_after_ms, remaining}.
var tokenBucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1]) / 1000
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now

tokens = math.min(burst, tokens + math.max(0, now - ts) * rate)

local allowed = 0
local wait = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], ttl)

return {allowed, wait, math.floor(tokens)}
`)

// CheckTokenRateLimit consumes from the bucket of one API token.
// A non-positive rate disables the limit.
func (c *Cache) CheckTokenRateLimit(ctx context.Context, tokenID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	return c.take(ctx, bucket{
		key:   rateLimitTokenPrefix + tokenID,
		rate:  float64(ratePerMinute) / 60,
		burst: burst,
	})
}

// CheckIPRateLimit consumes from the bucket of one client address.
// Addresses are hashed before they reach Redis.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	return c.take(ctx, bucket{
		key:   rateLimitIPPrefix + hashIP(ip),
		rate:  float64(ratePerSecond),
		burst: burst,
	})
}

// take runs the bucket script. Redis failures are returned; callers decide
// whether to fail open.
func (c *Cache) take(ctx context.Context, b bucket) (*RateLimitResult, error) {
	now := time.Now()
	if b.rate <= 0 || b.burst <= 0 {
		return &RateLimitResult{Allowed: true, Remaining: int64(max(b.burst, 0)), ResetAt: now}, nil
	}

	res, err := tokenBucketScript.Run(ctx, c.client, []string{b.key},
		b.rate*1000, b.burst, now.UnixMilli(), b.idleTTL().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", b.key, err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit %s: unexpected reply %v", b.key, res)
	}

	remaining := res[2]
	missing := float64(int64(b.burst) - remaining)
	return &RateLimitResult{
		Allowed:    res[0] == 1,
		Remaining:  remaining,
		ResetAt:    now.Add(time.Duration(math.Ceil(missing / b.rate * float64(time.Second)))),
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}, nil
}

// hashIP keeps raw client addresses out of Redis.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
