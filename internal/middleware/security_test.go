package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurity_Headers(t *testing.T) {
	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": "default-src 'none'; img-src 'self'; frame-ancestors 'none'",
		"Cache-Control":           "no-store",
	}

	for _, dev := range []bool{false, true} {
		rec := httptest.NewRecorder()
		Security(SecurityConfig{IsDevelopment: dev})(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images", nil))

		for header, value := range want {
			if got := rec.Header().Get(header); got != value {
				t.Errorf("dev=%v: %s = %q, want %q", dev, header, got, value)
			}
		}

		hsts := rec.Header().Get("Strict-Transport-Security")
		if dev && hsts != "" {
			t.Errorf("HSTS must be off in development, got %q", hsts)
		}
		if !dev && !strings.HasPrefix(hsts, "max-age=31536000") {
			t.Errorf("HSTS = %q, want a one year max-age", hsts)
		}
	}
}

func TestSecurity_CacheablePrefixes(t *testing.T) {
	handler := Security(SecurityConfig{CacheablePrefixes: []string{"/storage/"}})(okHandler())

	tests := []struct {
		path string
		want string
	}{
		{"/storage/images/1_a_cat.png", ""},
		{"/api/images", "no-store"},
		{"/api/events", "no-store"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

		if got := rec.Header().Get("Cache-Control"); got != tt.want {
			t.Errorf("%s: Cache-Control = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMaxBodySize(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		contentLength int64
		wantStatus    int
		wantReadErr   bool
	}{
		{"within limit", `{"user_id":"u1"}`, 16, http.StatusOK, false},
		{"declared too large", strings.Repeat("x", 64), 64, http.StatusRequestEntityTooLarge, false},
		{"undeclared and too large", strings.Repeat("x", 64), -1, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var readErr error
			handler := MaxBodySize(32)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, readErr = io.ReadAll(r.Body)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/tokens", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusRequestEntityTooLarge {
				if code := decodeErrorCode(t, rec); code != "PAYLOAD_TOO_LARGE" {
					t.Errorf("error code = %q, want PAYLOAD_TOO_LARGE", code)
				}
			}
			if (readErr != nil) != tt.wantReadErr {
				t.Errorf("read error = %v, want error %v", readErr, tt.wantReadErr)
			}
		})
	}
}
