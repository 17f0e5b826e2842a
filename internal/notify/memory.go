package notify

import (
	"context"
	"sync"
	"time"

	"github.com/photobooth/gallery/internal/model"
)

// MemoryNotifier keeps the slot in process memory.
// Suitable for a single API instance.
type MemoryNotifier struct {
	mu      sync.Mutex
	pending *model.ChangeEvent
	expires time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryNotifier creates an in-process notifier whose events expire after ttl.
func NewMemoryNotifier(ttl time.Duration) *MemoryNotifier {
	return &MemoryNotifier{ttl: ttl, now: time.Now}
}

// WithClock overrides the time source. Used by tests.
func (n *MemoryNotifier) WithClock(now func() time.Time) *MemoryNotifier {
	n.now = now
	return n
}

// Publish overwrites the pending event.
func (n *MemoryNotifier) Publish(_ context.Context, event model.ChangeEvent) error {
	if err := validate(event); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.pending = &event
	n.expires = n.now().Add(n.ttl)
	return nil
}

// Consume takes the pending event if it has not expired.
func (n *MemoryNotifier) Consume(_ context.Context) (*model.ChangeEvent, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	event := n.pending
	n.pending = nil

	if event == nil || !n.now().Before(n.expires) {
		return nil, nil
	}
	return event, nil
}
