package model

// ChangeEventType identifies a gallery mutation.
type ChangeEventType string

const (
	EventCreated ChangeEventType = "created"
	EventDeleted ChangeEventType = "deleted"
)

// ChangeEvent is a transient gallery notification. It is never persisted.
// Created events carry the image; deleted events carry only the id.
type ChangeEvent struct {
	Type  ChangeEventType `json:"type"`
	Image *ImageResponse  `json:"image,omitempty"`
	ID    string          `json:"id,omitempty"`
}

// NewCreatedEvent builds a created event for an image response.
func NewCreatedEvent(img ImageResponse) ChangeEvent {
	return ChangeEvent{Type: EventCreated, Image: &img, ID: img.ID}
}

// NewDeletedEvent builds a deleted event for an image id.
func NewDeletedEvent(id string) ChangeEvent {
	return ChangeEvent{Type: EventDeleted, ID: id}
}
