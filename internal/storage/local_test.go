package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir(), "http://gallery.test/")
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	return l
}

func blobExists(t *testing.T, l *Local, key string) bool {
	t.Helper()
	p, err := l.fullPath(key)
	if err != nil {
		t.Fatalf("fullPath(%q): %v", key, err)
	}
	_, err = os.Stat(p)
	return err == nil
}

func TestLocal_SaveExistsDelete(t *testing.T) {
	ctx := context.Background()
	l := newTestLocal(t)
	key := "images/1700000000_abc_photo.png"

	if err := l.Save(ctx, key, strings.NewReader("pixels"), "image/png"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !blobExists(t, l, key) {
		t.Fatal("blob missing after Save")
	}

	data, err := os.ReadFile(filepath.Join(l.root, "images", "1700000000_abc_photo.png"))
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(data) != "pixels" {
		t.Errorf("blob = %q", data)
	}

	if err := l.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if blobExists(t, l, key) {
		t.Error("blob should be gone after Delete")
	}
	if err := l.Delete(ctx, key); err != nil {
		t.Errorf("deleting a missing blob should not fail: %v", err)
	}
}

func TestLocal_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	l := newTestLocal(t)

	for _, key := range []string{"", "../escape.png", "images/../../escape.png", `images\x.png`, "images/./x.png"} {
		if err := l.Save(ctx, key, strings.NewReader("x"), "image/png"); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Save(%q) error = %v, want ErrInvalidPath", key, err)
		}
	}
}

func TestLocal_URL(t *testing.T) {
	l := newTestLocal(t)

	got := l.URL("images/a.png")
	if got != "http://gallery.test/storage/images/a.png" {
		t.Errorf("URL = %q", got)
	}
}

func TestLocal_Handler(t *testing.T) {
	ctx := context.Background()
	l := newTestLocal(t)
	payload := bytes.Repeat([]byte{0x89}, 32)

	if err := l.Save(ctx, "images/a.png", bytes.NewReader(payload), "image/png"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	srv := httptest.NewServer(mux(l))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/storage/images/a.png")
	if err != nil {
		t.Fatalf("GET blob: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.Equal(body, payload) {
		t.Errorf("GET blob = %d, %d bytes", resp.StatusCode, len(body))
	}

	resp, err = http.Get(srv.URL + "/storage/images/")
	if err != nil {
		t.Fatalf("GET dir: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("directory listing status = %d, want 404", resp.StatusCode)
	}
}

func mux(l *Local) http.Handler {
	m := http.NewServeMux()
	m.Handle(PublicPrefix, l.Handler())
	return m
}
