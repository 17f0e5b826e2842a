package gallery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/photobooth/gallery/internal/model"
)

type scriptedLister struct {
	mu    sync.Mutex
	feeds [][]model.ImageResponse
	errs  []error
	calls int
}

func (s *scriptedLister) List(context.Context) ([]model.ImageResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.feeds) {
		return s.feeds[len(s.feeds)-1], nil
	}
	return s.feeds[i], nil
}

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func img(id string, age int) model.ImageResponse {
	return model.ImageResponse{ID: id, Filename: id + ".png", CreatedAt: base.Add(-time.Duration(age) * time.Minute)}
}

func eventKeys(events []model.ChangeEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, fmt.Sprintf("%s:%s", e.Type, e.ID))
	}
	return out
}

func TestWatcher_PollDiffs(t *testing.T) {
	lister := &scriptedLister{feeds: [][]model.ImageResponse{
		{img("b", 1), img("a", 2)},
		{img("d", 0), img("c", 1), img("a", 2)},
		{img("d", 0), img("c", 1), img("a", 2)},
	}}
	w := NewWatcher(lister, time.Second, nil)
	ctx := context.Background()

	events, err := w.Poll(ctx)
	if err != nil || len(events) != 0 {
		t.Fatalf("seed poll = %v, %v; want no events", events, err)
	}

	events, err = w.Poll(ctx)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	got := eventKeys(events)
	want := []string{"deleted:b", "created:c", "created:d"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	events, _ = w.Poll(ctx)
	if len(events) != 0 {
		t.Errorf("unchanged feed produced %v", eventKeys(events))
	}
}

// feedOf returns images i<from>..i<to-1>, newest first, without skip.
func feedOf(from, to int, skip ...string) []model.ImageResponse {
	feed := make([]model.ImageResponse, 0, to-from)
	for i := from; i < to; i++ {
		im := img(fmt.Sprintf("i%02d", i), i+1)
		if slices.Contains(skip, im.ID) {
			continue
		}
		feed = append(feed, im)
	}
	return feed
}

func TestDiff_FullFeed(t *testing.T) {
	fresh := img("new", 0)

	tests := []struct {
		name string
		prev []model.ImageResponse
		feed []model.ImageResponse
		want []string
	}{
		{
			name: "deletion backfills an older image",
			prev: feedOf(0, feedLimit),
			feed: feedOf(0, feedLimit+1, "i10"),
			want: []string{"deleted:i10"},
		},
		{
			name: "upload pushes the oldest out",
			prev: feedOf(0, feedLimit),
			feed: append([]model.ImageResponse{fresh}, feedOf(0, feedLimit-1)...),
			want: []string{"created:new"},
		},
		{
			name: "deletion and upload in one poll",
			prev: feedOf(0, feedLimit),
			feed: append([]model.ImageResponse{fresh}, feedOf(0, feedLimit, "i10")...),
			want: []string{"deleted:i10", "created:new"},
		},
		{
			name: "feed below the cap reports older arrivals",
			prev: feedOf(0, 10),
			feed: feedOf(0, 11, "i05"),
			want: []string{"deleted:i05", "created:i10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := make(map[string]model.ImageResponse, len(tt.prev))
			for _, im := range tt.prev {
				prev[im.ID] = im
			}

			got := eventKeys(diff(prev, tt.feed))
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("events = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatcher_RunRetriesAfterErrors(t *testing.T) {
	lister := &scriptedLister{
		feeds: [][]model.ImageResponse{
			{},
			{},
			{img("x", 0)},
		},
		errs: []error{nil, errors.New("connection refused")},
	}
	w := NewWatcher(lister, 5*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got := make(chan model.ChangeEvent, 1)
	go func() {
		_ = w.Run(ctx, func(e model.ChangeEvent) {
			select {
			case got <- e:
			default:
			}
		})
	}()

	select {
	case e := <-got:
		if e.Type != model.EventCreated || e.ID != "x" {
			t.Errorf("event = %+v, want created x", e)
		}
	case <-ctx.Done():
		t.Fatal("watcher never reported the new image")
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	w := NewWatcher(&scriptedLister{feeds: [][]model.ImageResponse{{}}}, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(model.ChangeEvent) {}) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
