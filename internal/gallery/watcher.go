package gallery

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/photobooth/gallery/internal/model"
)

// DefaultPollInterval is how often the watcher re-reads the feed.
const DefaultPollInterval = 2 * time.Second

// feedLimit mirrors the server's recent-images cap.
const feedLimit = 50

// Lister is the part of Client the watcher needs.
type Lister interface {
	List(ctx context.Context) ([]model.ImageResponse, error)
}

// Watcher turns feed snapshots into change events by diffing id sets.
// It needs nothing from the server beyond the public list endpoint.
type Watcher struct {
	lister   Lister
	interval time.Duration
	logger   *slog.Logger

	known  map[string]model.ImageResponse
	seeded bool
}

// NewWatcher creates a Watcher polling at interval.
func NewWatcher(lister Lister, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		lister:   lister,
		interval: interval,
		logger:   logger,
		known:    make(map[string]model.ImageResponse),
	}
}

// Poll reads the feed once and returns what changed since the previous
// call. The first call only records the current state.
func (w *Watcher) Poll(ctx context.Context) ([]model.ChangeEvent, error) {
	images, err := w.lister.List(ctx)
	if err != nil {
		return nil, err
	}

	var events []model.ChangeEvent
	if w.seeded {
		events = diff(w.known, images)
	}

	w.known = make(map[string]model.ImageResponse, len(images))
	for _, img := range images {
		w.known[img.ID] = img
	}
	w.seeded = true
	return events, nil
}

// Run polls until ctx is done, calling fn for every event in order.
// List failures are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context, fn func(model.ChangeEvent)) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		events, err := w.Poll(ctx)
		if err != nil && ctx.Err() == nil {
			w.logger.Warn("gallery poll failed", "error", err)
		}
		for _, e := range events {
			fn(e)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// diff compares the previous id set with a new newest-first feed.
// Deletions come first, then creations oldest to newest. When the feed
// sits at its cap, ids that fall off the end are not deleted and older
// ids that slide in behind a deletion are not created.
func diff(prev map[string]model.ImageResponse, feed []model.ImageResponse) []model.ChangeEvent {
	current := make(map[string]struct{}, len(feed))
	for _, img := range feed {
		current[img.ID] = struct{}{}
	}

	var deleted []string
	for id, img := range prev {
		if _, ok := current[id]; ok {
			continue
		}
		if len(feed) >= feedLimit && olderThan(img, feed[len(feed)-1]) {
			continue
		}
		deleted = append(deleted, id)
	}
	slices.Sort(deleted)

	events := make([]model.ChangeEvent, 0, len(deleted))
	for _, id := range deleted {
		events = append(events, model.NewDeletedEvent(id))
	}

	var prevOldest *model.ImageResponse
	if len(prev) >= feedLimit {
		for _, img := range prev {
			if prevOldest == nil || olderThan(img, *prevOldest) {
				prevOldest = &img
			}
		}
	}

	for i := len(feed) - 1; i >= 0; i-- {
		if _, ok := prev[feed[i].ID]; ok {
			continue
		}
		if prevOldest != nil && olderThan(feed[i], *prevOldest) {
			continue
		}
		events = append(events, model.NewCreatedEvent(feed[i]))
	}
	return events
}

// olderThan orders images the way the feed does: created_at, then id.
func olderThan(a, b model.ImageResponse) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
