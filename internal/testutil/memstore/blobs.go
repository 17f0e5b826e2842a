package memstore

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Blobs is an in-memory storage.Storage.
type Blobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	writes  int
	baseURL string
}

// NewBlobs returns empty blob storage that builds URLs under baseURL.
func NewBlobs(baseURL string) *Blobs {
	return &Blobs{objects: make(map[string][]byte), baseURL: baseURL}
}

func (b *Blobs) Save(_ context.Context, key string, r io.Reader, _ string) error {
	b.mu.Lock()
	b.writes++
	b.mu.Unlock()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = buf.Bytes()
	return nil
}

func (b *Blobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *Blobs) URL(key string) string {
	return b.baseURL + "/storage/" + key
}

// Writes returns how many Save calls were attempted.
func (b *Blobs) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

// Len returns the number of stored objects.
func (b *Blobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// Get returns the stored bytes for key.
func (b *Blobs) Get(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	return data, ok
}
