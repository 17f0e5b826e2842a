// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Image store metrics
	IncImageUploaded()
	IncUploadRejected(reason string) // reason: "mime", "size", "empty"
	IncImageDeleted()
	ObserveUploadDuration(duration time.Duration)

	// Token metrics
	IncTokenIssued()
	IncTokenRevoked(count int)
	IncAuthFailure(reason string) // reason: "missing", "invalid", "expired", "error"

	// Change notification metrics
	IncEventPublished()
	IncEventDelivered()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
