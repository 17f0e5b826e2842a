package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"propagated", "booth-upload-42", true},
		{"too long", strings.Repeat("a", maxCorrelationIDLen+1), false},
		{"control characters", "abc\ndef", false},
		{"spaces", "abc def", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inCtx string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				inCtx = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/images", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			header := rec.Header().Get(RequestIDHeader)
			if header == "" || header != inCtx {
				t.Fatalf("header %q and context %q must match and be non-empty", header, inCtx)
			}
			if got := header == tt.incoming; got != tt.keep {
				t.Errorf("kept incoming id = %v, want %v (got %q)", got, tt.keep, header)
			}
		})
	}
}

func TestRequestID_TraceID(t *testing.T) {
	var inCtx string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inCtx = GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "trace-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if inCtx != "trace-1" || rec.Header().Get(TraceIDHeader) != "trace-1" {
		t.Errorf("trace id not carried: ctx %q header %q", inCtx, rec.Header().Get(TraceIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if inCtx != "" || rec.Header().Get(TraceIDHeader) != "" {
		t.Error("expected no trace id when the client sent none")
	}
}
