// Package storage persists image blobs and resolves their public URLs.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrInvalidPath is returned for keys that escape the storage root.
var ErrInvalidPath = errors.New("invalid storage path")

// Storage defines blob operations used by the image store.
type Storage interface {
	// Save stores the blob at key.
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	// Delete removes the blob at key. Missing blobs are not an error.
	Delete(ctx context.Context, key string) error
	// URL returns a publicly resolvable URL for key.
	URL(key string) string
}

// cleanKey normalizes a storage key and rejects traversal.
func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, `\`) {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
