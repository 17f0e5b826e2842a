package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestImage_MarkDeleted(t *testing.T) {
	img := &Image{ID: "img", State: ImageStateActive}
	if img.IsDeleted() {
		t.Fatal("new image should be active")
	}

	at := time.Now()
	img.MarkDeleted(at)

	if !img.IsDeleted() {
		t.Error("expected image to be deleted")
	}
	if img.DeletedAt == nil || !img.DeletedAt.Equal(at) {
		t.Errorf("DeletedAt = %v, want %v", img.DeletedAt, at)
	}
}

func TestChangeEvent_JSON(t *testing.T) {
	img := (&Image{ID: "img1", Filename: "a.png", MimeType: "image/png", Size: 3}).ToResponse("http://x/a.png")

	data, err := json.Marshal(NewCreatedEvent(img))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, want := range []string{`"type":"created"`, `"url":"http://x/a.png"`, `"mime_type":"image/png"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("created event %s missing %s", data, want)
		}
	}

	data, err = json.Marshal(NewDeletedEvent("img1"))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"type":"deleted","id":"img1"}` {
		t.Errorf("deleted event = %s", data)
	}
}
