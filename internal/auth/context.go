package auth

import (
	"context"

	"github.com/photobooth/gallery/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const tokenContextKey contextKey = "api_token"

// ContextWithToken attaches the authenticated token to the context.
func ContextWithToken(ctx context.Context, token *model.APIToken) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext retrieves the authenticated token.
// Returns nil if the request was not authenticated.
func TokenFromContext(ctx context.Context) *model.APIToken {
	token, ok := ctx.Value(tokenContextKey).(*model.APIToken)
	if !ok {
		return nil
	}
	return token
}

// UserIDFromContext returns the owner of the authenticated token.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	token := TokenFromContext(ctx)
	if token == nil {
		return ""
	}
	return token.UserID
}

// TokenIDFromContext returns the id of the authenticated token.
// Returns empty string if not authenticated.
func TokenIDFromContext(ctx context.Context) string {
	token := TokenFromContext(ctx)
	if token == nil {
		return ""
	}
	return token.ID
}
