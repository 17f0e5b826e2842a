package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/photobooth/gallery/internal/gallery"
	"github.com/photobooth/gallery/internal/model"
)

const imagesPath = "/api/images"

func upload(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := fs.String("endpoint", os.Getenv("API_UPLOAD_ENDPOINT"), "upload endpoint, e.g. http://host:8080/api/images")
	token := fs.String("token", os.Getenv("API_AUTH_TOKEN"), "API token with the upload ability")
	file := fs.String("file", "", "image to upload")
	timeout := fs.Duration("timeout", envDuration("API_TIMEOUT", gallery.DefaultTimeout), "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" && fs.NArg() > 0 {
		*file = fs.Arg(0)
	}

	switch {
	case *endpoint == "":
		return errors.New("--endpoint or API_UPLOAD_ENDPOINT is required")
	case *token == "":
		return errors.New("--token or API_AUTH_TOKEN is required")
	case *file == "":
		return errors.New("--file is required")
	}

	baseURL, err := baseURLFromEndpoint(*endpoint)
	if err != nil {
		return err
	}
	client, err := gallery.NewClient(baseURL, gallery.WithToken(*token), gallery.WithTimeout(*timeout))
	if err != nil {
		return err
	}

	img, err := client.UploadFile(ctx, *file)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(img)
}

func watch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	baseURL := fs.String("base-url", envString("GALLERY_BASE_URL", "http://localhost:8080"), "gallery base URL")
	interval := fs.Duration("interval", envDuration("GALLERY_POLL_INTERVAL", gallery.DefaultPollInterval), "poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := gallery.NewClient(*baseURL)
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(stderr, nil))
	w := gallery.NewWatcher(client, *interval, log)

	err = w.Run(ctx, func(e model.ChangeEvent) {
		printEvent(stdout, e)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printEvent(w io.Writer, e model.ChangeEvent) {
	switch e.Type {
	case model.EventCreated:
		if e.Image != nil {
			fmt.Fprintf(w, "created %s %s %s\n", e.Image.ID, e.Image.Filename, e.Image.URL)
			return
		}
		fmt.Fprintf(w, "created %s\n", e.ID)
	case model.EventDeleted:
		fmt.Fprintf(w, "deleted %s\n", e.ID)
	}
}

// baseURLFromEndpoint accepts either the service root or the full upload
// endpoint and returns the service root.
func baseURLFromEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q", endpoint)
	}
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), imagesPath)
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envDuration accepts a Go duration or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	var secs int
	if _, err := fmt.Sscanf(v, "%d", &secs); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
