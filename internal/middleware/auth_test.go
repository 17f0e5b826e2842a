package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/photobooth/gallery/internal/auth"
	"github.com/photobooth/gallery/internal/metrics"
	"github.com/photobooth/gallery/internal/model"
	"github.com/photobooth/gallery/internal/service"
)

type fakeAuthenticator struct {
	mu      sync.Mutex
	tokens  map[string]*model.APIToken
	err     error
	touched []string
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, secret string) (*model.APIToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	token, ok := f.tokens[secret]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return token, nil
}

func (f *fakeAuthenticator) Touch(_ context.Context, token *model.APIToken) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, token.ID)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestAuth(t *testing.T) {
	token := &model.APIToken{ID: "tok1", UserID: "user1", Abilities: []string{model.AbilityUpload}}

	tests := []struct {
		name       string
		header     string
		authErr    error
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{"valid token", "Bearer secret", nil, http.StatusOK, "", ""},
		{"lowercase scheme", "bearer secret", nil, http.StatusOK, "", ""},
		{"missing header", "", nil, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "missing"},
		{"wrong scheme", "Basic secret", nil, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "missing"},
		{"empty secret", "Bearer   ", nil, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "missing"},
		{"unknown secret", "Bearer nope", nil, http.StatusUnauthorized, "INVALID_TOKEN", "invalid"},
		{"expired token", "Bearer secret", service.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED", "expired"},
		{"lookup failure", "Bearer secret", errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authn := &fakeAuthenticator{tokens: map[string]*model.APIToken{"secret": token}, err: tt.authErr}
			rec := metrics.NewInMemory()

			var seen *model.APIToken
			handler := Auth(AuthConfig{Logger: discardLogger(), Tokens: authn, Metrics: rec})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					seen = auth.TokenFromContext(r.Context())
					w.WriteHeader(http.StatusOK)
				}))

			req := httptest.NewRequest(http.MethodPost, "/api/images", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			if tt.wantStatus == http.StatusOK {
				if seen == nil || seen.ID != token.ID {
					t.Fatalf("token not attached to context: %+v", seen)
				}
				if len(authn.touched) != 1 {
					t.Errorf("touch calls = %d, want 1", len(authn.touched))
				}
				return
			}

			if got := decodeErrorCode(t, w); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
			if got := rec.Snapshot().AuthFailures[tt.wantReason]; got != 1 {
				t.Errorf("auth failures[%s] = %d, want 1", tt.wantReason, got)
			}
			if len(authn.touched) != 0 {
				t.Error("failed authentication must not record use")
			}
		})
	}
}

func TestRequireAbility(t *testing.T) {
	tests := []struct {
		name       string
		token      *model.APIToken
		ability    string
		wantStatus int
	}{
		{"no token", nil, model.AbilityUpload, http.StatusUnauthorized},
		{"granted", &model.APIToken{Abilities: []string{model.AbilityUpload}}, model.AbilityUpload, http.StatusOK},
		{"wildcard", &model.APIToken{Abilities: []string{model.AbilityWildcard}}, model.AbilityDelete, http.StatusOK},
		{"lacking", &model.APIToken{Abilities: []string{model.AbilityUpload}}, model.AbilityDelete, http.StatusForbidden},
		{"empty abilities", &model.APIToken{Abilities: []string{}}, model.AbilityUpload, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAbility(tt.ability)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodDelete, "/api/images/x", nil)
			if tt.token != nil {
				req = req.WithContext(auth.ContextWithToken(req.Context(), tt.token))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				if got := decodeErrorCode(t, w); got != "FORBIDDEN" {
					t.Errorf("code = %q, want FORBIDDEN", got)
				}
			}
		})
	}
}
