package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/photobooth/gallery/internal/auth"
	"github.com/photobooth/gallery/internal/cache"
)

// RateLimiter checks token-bucket limits. Implemented by *cache.Cache.
type RateLimiter interface {
	CheckTokenRateLimit(ctx context.Context, tokenID string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter

	// Per API token, for authenticated routes
	TokenEnabled bool
	TokenRPM     int
	TokenBurst   int

	// Per client IP, for public routes
	IPEnabled bool
	IPRPS     int
	IPBurst   int
}

// RateLimitToken limits requests per API token. It must run after Auth;
// requests without a token pass through.
func RateLimitToken(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limit("token", cfg.TokenEnabled, cfg.TokenRPM, func(r *http.Request) (string, checkFunc) {
		token := auth.TokenFromContext(r.Context())
		if token == nil {
			return "", nil
		}
		return token.ID, func(ctx context.Context) (*cache.RateLimitResult, error) {
			return cfg.Limiter.CheckTokenRateLimit(ctx, token.ID, cfg.TokenRPM, cfg.TokenBurst)
		}
	})
}

// RateLimitIP limits requests per client address on public routes.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limit("ip", cfg.IPEnabled, 0, func(r *http.Request) (string, checkFunc) {
		ip := getClientIP(r)
		return ip, func(ctx context.Context) (*cache.RateLimitResult, error) {
			return cfg.Limiter.CheckIPRateLimit(ctx, ip, cfg.IPRPS, cfg.IPBurst)
		}
	})
}

type checkFunc func(ctx context.Context) (*cache.RateLimitResult, error)

// limit is the shared middleware body. subject picks the bucket owner for a
// request; a nil check skips limiting. headerLimit > 0 advertises the
// X-RateLimit-* headers. Limiter failures fail open.
func (cfg RateLimitConfig) limit(kind string, enabled bool, headerLimit int, subject func(*http.Request) (string, checkFunc)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled || cfg.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, check := subject(r)
			if check == nil {
				next.ServeHTTP(w, r)
				return
			}

			result, err := check(r.Context())
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("type", kind),
					slog.String("subject", who),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if headerLimit > 0 {
				h := w.Header()
				h.Set("X-RateLimit-Limit", strconv.Itoa(headerLimit))
				h.Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
				h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			}

			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("type", kind),
					slog.String("subject", who),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Duration("retry_after", result.RetryAfter),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeRateLimitError answers 429 with Retry-After rounded up to whole seconds.
func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := max(int(math.Ceil(retryAfter.Seconds())), 1)
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", seconds))
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers for proxied requests.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
