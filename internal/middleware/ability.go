package middleware

import (
	"fmt"
	"net/http"

	"github.com/photobooth/gallery/internal/auth"
)

// RequireAbility returns middleware that enforces a token ability.
// Must be applied after Auth middleware.
func RequireAbility(ability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromContext(r.Context())
			if token == nil {
				writeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "API token required")
				return
			}

			if !token.Can(ability) {
				writeError(w, http.StatusForbidden, "FORBIDDEN",
					fmt.Sprintf("Token lacks the %q ability", ability))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
