package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/photobooth/gallery/internal/auth"
	"github.com/photobooth/gallery/internal/metrics"
	"github.com/photobooth/gallery/internal/model"
	"github.com/photobooth/gallery/internal/service"
)

// TokenAuthenticator resolves bearer secrets. Implemented by service.TokenService.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, secret string) (*model.APIToken, error)
	Touch(ctx context.Context, token *model.APIToken)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Tokens  TokenAuthenticator
	Metrics metrics.Recorder
}

// Auth returns a middleware that authenticates API requests with a bearer token.
// On success the token is attached to the request context and its last use
// is recorded without delaying the response.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fail := func(reason string, status int, code, message string) {
				cfg.Metrics.IncAuthFailure(reason)
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", getClientIP(r)),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, status, code, message)
			}

			secret, ok := extractBearer(r)
			if !ok {
				fail("missing", http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "API token required")
				return
			}

			token, err := cfg.Tokens.Authenticate(r.Context(), secret)
			switch {
			case err == nil:
			case errors.Is(err, service.ErrInvalidToken):
				fail("invalid", http.StatusUnauthorized, "INVALID_TOKEN", "Invalid API token")
				return
			case errors.Is(err, service.ErrTokenExpired):
				fail("expired", http.StatusUnauthorized, "TOKEN_EXPIRED", "API token has expired")
				return
			default:
				cfg.Metrics.IncAuthFailure("error")
				cfg.Logger.Error("token lookup failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
				return
			}

			cfg.Tokens.Touch(r.Context(), token)

			cfg.Logger.Debug("authentication successful",
				slog.String("token_id", token.ID),
				slog.String("user_id", token.UserID),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer reads "Authorization: Bearer <secret>". The scheme is case-insensitive.
func extractBearer(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, secret, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	secret = strings.TrimSpace(secret)
	return secret, secret != ""
}
