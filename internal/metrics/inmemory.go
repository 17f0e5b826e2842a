package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ImagesUploaded        uint64            `json:"images_uploaded"`
	ImagesDeleted         uint64            `json:"images_deleted"`
	UploadsRejected       map[string]uint64 `json:"uploads_rejected"`
	UploadDurationCount   uint64            `json:"upload_duration_count"`
	UploadDurationTotalNs int64             `json:"upload_duration_total_ns"`
	TokensIssued          uint64            `json:"tokens_issued"`
	TokensRevoked         uint64            `json:"tokens_revoked"`
	AuthFailures          map[string]uint64 `json:"auth_failures"`
	EventsPublished       uint64            `json:"events_published"`
	EventsDelivered       uint64            `json:"events_delivered"`
}

// InMemoryRecorder stores metrics in memory. Backs /metrics and tests.
type InMemoryRecorder struct {
	imagesUploaded        uint64
	imagesDeleted         uint64
	uploadDurationCount   uint64
	uploadDurationTotalNs int64
	tokensIssued          uint64
	tokensRevoked         uint64
	eventsPublished       uint64
	eventsDelivered       uint64

	mu              sync.Mutex
	uploadsRejected map[string]uint64
	authFailures    map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		uploadsRejected: make(map[string]uint64),
		authFailures:    make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	rejected := maps.Clone(m.uploadsRejected)
	failures := maps.Clone(m.authFailures)
	m.mu.Unlock()

	return Snapshot{
		ImagesUploaded:        atomic.LoadUint64(&m.imagesUploaded),
		ImagesDeleted:         atomic.LoadUint64(&m.imagesDeleted),
		UploadsRejected:       rejected,
		UploadDurationCount:   atomic.LoadUint64(&m.uploadDurationCount),
		UploadDurationTotalNs: atomic.LoadInt64(&m.uploadDurationTotalNs),
		TokensIssued:          atomic.LoadUint64(&m.tokensIssued),
		TokensRevoked:         atomic.LoadUint64(&m.tokensRevoked),
		AuthFailures:          failures,
		EventsPublished:       atomic.LoadUint64(&m.eventsPublished),
		EventsDelivered:       atomic.LoadUint64(&m.eventsDelivered),
	}
}

// IncImageUploaded increments the upload counter.
func (m *InMemoryRecorder) IncImageUploaded() {
	atomic.AddUint64(&m.imagesUploaded, 1)
}

// IncUploadRejected counts a rejected upload by reason.
func (m *InMemoryRecorder) IncUploadRejected(reason string) {
	m.mu.Lock()
	m.uploadsRejected[reason]++
	m.mu.Unlock()
}

// IncImageDeleted increments the delete counter.
func (m *InMemoryRecorder) IncImageDeleted() {
	atomic.AddUint64(&m.imagesDeleted, 1)
}

// ObserveUploadDuration records upload handling time.
func (m *InMemoryRecorder) ObserveUploadDuration(duration time.Duration) {
	atomic.AddUint64(&m.uploadDurationCount, 1)
	atomic.AddInt64(&m.uploadDurationTotalNs, duration.Nanoseconds())
}

// IncTokenIssued increments the issued token counter.
func (m *InMemoryRecorder) IncTokenIssued() {
	atomic.AddUint64(&m.tokensIssued, 1)
}

// IncTokenRevoked adds count revoked tokens.
func (m *InMemoryRecorder) IncTokenRevoked(count int) {
	if count <= 0 {
		return
	}
	atomic.AddUint64(&m.tokensRevoked, uint64(count))
}

// IncAuthFailure counts a rejected request by reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.mu.Lock()
	m.authFailures[reason]++
	m.mu.Unlock()
}

// IncEventPublished increments the published event counter.
func (m *InMemoryRecorder) IncEventPublished() {
	atomic.AddUint64(&m.eventsPublished, 1)
}

// IncEventDelivered increments the delivered event counter.
func (m *InMemoryRecorder) IncEventDelivered() {
	atomic.AddUint64(&m.eventsDelivered, 1)
}
