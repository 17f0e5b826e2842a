package model

import "time"

// ImageState is the lifecycle state of an image record.
type ImageState string

const (
	ImageStateActive  ImageState = "active"
	ImageStateDeleted ImageState = "deleted"
)

// Image represents uploaded image metadata. The blob lives in storage under StoragePath.
type Image struct {
	ID          string     `json:"id"`
	Filename    string     `json:"filename"`
	StoragePath string     `json:"-"`
	MimeType    string     `json:"mime_type"`
	Size        int64      `json:"size"`
	State       ImageState `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"-"`
}

// IsDeleted returns true if the image has been soft-deleted.
func (i *Image) IsDeleted() bool {
	return i.State == ImageStateDeleted
}

// MarkDeleted moves the image into the deleted state.
func (i *Image) MarkDeleted(at time.Time) {
	i.State = ImageStateDeleted
	i.DeletedAt = &at
}

// ImageResponse is the public representation of an image.
type ImageResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts an Image using the resolved public URL.
func (i *Image) ToResponse(url string) ImageResponse {
	return ImageResponse{
		ID:        i.ID,
		Filename:  i.Filename,
		URL:       url,
		MimeType:  i.MimeType,
		Size:      i.Size,
		CreatedAt: i.CreatedAt,
	}
}
