package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/photobooth/gallery/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "gallery_images_uploaded_total %d\n", snap.ImagesUploaded)
	writeMetric(w, "gallery_images_deleted_total %d\n", snap.ImagesDeleted)
	writeLabeled(w, "gallery_uploads_rejected_total", "reason", snap.UploadsRejected)
	writeMetric(w, "gallery_upload_duration_seconds_count %d\n", snap.UploadDurationCount)
	writeMetric(w, "gallery_upload_duration_seconds_sum %.6f\n", float64(snap.UploadDurationTotalNs)/1e9)

	writeMetric(w, "gallery_tokens_issued_total %d\n", snap.TokensIssued)
	writeMetric(w, "gallery_tokens_revoked_total %d\n", snap.TokensRevoked)
	writeLabeled(w, "gallery_auth_failures_total", "reason", snap.AuthFailures)

	writeMetric(w, "gallery_events_published_total %d\n", snap.EventsPublished)
	writeMetric(w, "gallery_events_delivered_total %d\n", snap.EventsDelivered)
}

// writeLabeled writes one sample per label value in sorted order.
func writeLabeled(w http.ResponseWriter, name, label string, values map[string]uint64) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
