package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServer_ShutdownOrderAndStreams(t *testing.T) {
	streamStarted := make(chan struct{})
	streamEnded := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = http.NewResponseController(w).Flush()
		close(streamStarted)
		<-r.Context().Done()
		close(streamEnded)
	})

	srv := New(mux, Config{ShutdownTimeout: 5 * time.Second}, discardLogger())

	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownFunc {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	srv.OnShutdown("database", record("database"))
	srv.OnShutdown("cache", record("cache"))
	srv.OnShutdown("token touches", record("token touches"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/stream")
	if err != nil {
		t.Fatalf("get stream: %v", err)
	}
	defer resp.Body.Close()
	<-streamStarted

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	select {
	case <-streamEnded:
	default:
		t.Error("stream context was not cancelled on shutdown")
	}

	want := []string{"token touches", "cache", "database"}
	if !slices.Equal(order, want) {
		t.Errorf("shutdown order = %v, want %v", order, want)
	}
}

func TestServer_ShutdownErrorsJoined(t *testing.T) {
	srv := New(http.NewServeMux(), Config{ShutdownTimeout: time.Second}, discardLogger())

	errCache := errors.New("cache close failed")
	srv.OnShutdown("cache", func(context.Context) error { return errCache })
	srv.OnShutdown("ok", func(context.Context) error { return nil })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := srv.Serve(ctx, ln); !errors.Is(err, errCache) {
		t.Errorf("Serve() = %v, want wrapped %v", err, errCache)
	}
}

func TestServer_Addr(t *testing.T) {
	srv := New(http.NewServeMux(), Config{Port: 9090}, discardLogger())
	if srv.Addr() != ":9090" {
		t.Errorf("Addr() = %q, want :9090", srv.Addr())
	}
}
