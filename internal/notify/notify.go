// Package notify carries gallery change events from writers to readers
// through a single shared slot.
//
// The slot holds at most one pending event. Publish overwrites it and
// Consume reads and clears it atomically, so two publishes between reads
// leave only the second event observable. Readers that need every change
// should diff the image list instead (see package gallery).
package notify

import (
	"context"
	"errors"

	"github.com/photobooth/gallery/internal/model"
)

// ErrInvalidEvent is returned when publishing an event without a type.
var ErrInvalidEvent = errors.New("invalid change event")

// Notifier publishes and consumes gallery change events.
type Notifier interface {
	// Publish overwrites the pending event.
	Publish(ctx context.Context, event model.ChangeEvent) error
	// Consume atomically takes the pending event. Returns nil when none is pending.
	Consume(ctx context.Context) (*model.ChangeEvent, error)
}

func validate(event model.ChangeEvent) error {
	switch event.Type {
	case model.EventCreated:
		if event.Image == nil {
			return ErrInvalidEvent
		}
	case model.EventDeleted:
		if event.ID == "" {
			return ErrInvalidEvent
		}
	default:
		return ErrInvalidEvent
	}
	return nil
}
