package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncImageUploaded()                            {}
func (n *NoopRecorder) IncUploadRejected(reason string)              {}
func (n *NoopRecorder) IncImageDeleted()                             {}
func (n *NoopRecorder) ObserveUploadDuration(duration time.Duration) {}
func (n *NoopRecorder) IncTokenIssued()                              {}
func (n *NoopRecorder) IncTokenRevoked(count int)                    {}
func (n *NoopRecorder) IncAuthFailure(reason string)                 {}
func (n *NoopRecorder) IncEventPublished()                           {}
func (n *NoopRecorder) IncEventDelivered()                           {}
