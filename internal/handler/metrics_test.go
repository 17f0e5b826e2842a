package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/photobooth/gallery/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.IncImageUploaded()
	recorder.IncUploadRejected("size")
	recorder.IncUploadRejected("mime")
	recorder.IncAuthFailure("missing")

	rec := httptest.NewRecorder()
	NewMetricsHandler(recorder).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"gallery_images_uploaded_total 1\n",
		`gallery_uploads_rejected_total{reason="mime"} 1` + "\n" + `gallery_uploads_rejected_total{reason="size"} 1`,
		`gallery_auth_failures_total{reason="missing"} 1`,
		"gallery_events_delivered_total 0\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q\n%s", want, body)
		}
	}
}

func TestMetricsHandler_Unavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetricsHandler(nil).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
