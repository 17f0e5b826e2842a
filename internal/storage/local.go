package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// PublicPrefix is the URL path the local driver serves blobs under.
const PublicPrefix = "/storage/"

// Local stores blobs on the filesystem under root.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates the root directory if needed.
// baseURL is the externally visible origin, e.g. https://gallery.example.com.
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (l *Local) fullPath(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(cleaned)), nil
}

// Save writes the blob through a temp file so readers never see partial data.
func (l *Local) Save(_ context.Context, key string, r io.Reader, _ string) error {
	dst, err := l.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("commit blob: %w", err)
	}
	return nil
}

// Delete removes the blob.
func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// URL returns baseURL + /storage/ + key.
func (l *Local) URL(key string) string {
	return l.baseURL + PublicPrefix + strings.TrimPrefix(key, "/")
}

// Handler serves stored blobs. Mount it at PublicPrefix.
func (l *Local) Handler() http.Handler {
	return http.StripPrefix(PublicPrefix, http.FileServer(noListingFS{http.Dir(l.root)}))
}

// noListingFS hides directory indexes.
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
