package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// serveLogged runs one request through RequestID and Logger and returns the
// decoded log record.
func serveLogged(t *testing.T, req *http.Request, status int) (map[string]any, string) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"data":[]}`))
	})))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return record, buf.String()
}

func TestLogger_NeverLogsBearerSecrets(t *testing.T) {
	t.Parallel()

	secret := "Xk3c9Qv7LmP2sT8wYb4nR6hJ1dF5gA0eZuIoWqEyRtUiOpAsDfGhJkLzXcVbNm12"

	for _, path := range []string{"/api/images", "/api/tokens"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+secret)

		_, raw := serveLogged(t, req, http.StatusCreated)
		if strings.Contains(raw, secret) || strings.Contains(raw, "Bearer") {
			t.Errorf("%s: log line leaked the credential: %s", path, raw)
		}
	}
}

func TestLogger_Fields(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/images", nil)
	req.Header.Set("User-Agent", "photobooth/1.0")
	req.Header.Set(RequestIDHeader, "req-7")
	req.Header.Set(TraceIDHeader, "trace-7")
	req.RemoteAddr = "198.51.100.4:5123"

	record, _ := serveLogged(t, req, http.StatusOK)

	want := map[string]any{
		"msg":         "http request",
		"method":      "GET",
		"path":        "/api/images",
		"status_code": float64(200),
		"bytes":       float64(len(`{"data":[]}`)),
		"user_agent":  "photobooth/1.0",
		"request_id":  "req-7",
		"trace_id":    "trace-7",
		"client_ip":   "198.51.100.4",
	}
	for key, value := range want {
		if record[key] != value {
			t.Errorf("%s = %v, want %v", key, record[key], value)
		}
	}
	if _, ok := record["duration_ms"]; !ok {
		t.Error("duration_ms missing")
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusCreated, "INFO"},
		{http.StatusUnauthorized, "WARN"},
		{http.StatusUnprocessableEntity, "WARN"},
		{http.StatusTooManyRequests, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
		{http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		record, _ := serveLogged(t, httptest.NewRequest(http.MethodGet, "/api/images", nil), tt.status)
		if record["level"] != tt.level {
			t.Errorf("status %d logged at %v, want %s", tt.status, record["level"], tt.level)
		}
	}
}

func TestResponseWriter_Status(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := wrapResponseWriter(rec)
	_, _ = rw.Write([]byte("hello"))
	if rw.status != http.StatusOK {
		t.Errorf("implicit status = %d, want 200", rw.status)
	}

	rec = httptest.NewRecorder()
	rw = wrapResponseWriter(rec)
	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.status != http.StatusCreated || rec.Code != http.StatusCreated {
		t.Errorf("second WriteHeader must be ignored: wrapper %d, recorder %d", rw.status, rec.Code)
	}
}

func TestResponseWriter_FlushAndBytes(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	wrapped := wrapResponseWriter(rec)

	if _, err := wrapped.Write([]byte("data: {}\n\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := http.NewResponseController(wrapped).Flush(); err != nil {
		t.Fatalf("flush through controller: %v", err)
	}

	if !rec.Flushed {
		t.Error("underlying recorder was not flushed")
	}
	if wrapped.bytes != 10 {
		t.Errorf("bytes = %d, want 10", wrapped.bytes)
	}
}
