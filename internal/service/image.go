package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/photobooth/gallery/internal/auth"
	"github.com/photobooth/gallery/internal/metrics"
	"github.com/photobooth/gallery/internal/model"
	"github.com/photobooth/gallery/internal/notify"
	"github.com/photobooth/gallery/internal/repository"
	"github.com/photobooth/gallery/internal/storage"
)

const (
	// ListLimit caps the recent-images feed.
	ListLimit = 50

	// DefaultMaxUploadSize is 100MB.
	DefaultMaxUploadSize int64 = 100 << 20

	sniffLen         = 512
	imageDir         = "images"
	maxStoredNameLen = 100
	cleanupTimeout   = 10 * time.Second
	publishTimeout   = 2 * time.Second
)

// allowedTypes maps sniffed content types to accepted file extensions.
var allowedTypes = map[string][]string{
	"image/png":  {".png"},
	"image/gif":  {".gif"},
	"image/jpeg": {".jpg", ".jpeg"},
}

// ImageService handles uploads, the recent feed and soft deletes.
type ImageService struct {
	repo     ImageRepository
	storage  storage.Storage
	notifier notify.Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
	maxSize  int64
	now      func() time.Time
}

// NewImageService creates a new ImageService. A non-positive maxSize uses DefaultMaxUploadSize.
func NewImageService(repo ImageRepository, store storage.Storage, notifier notify.Notifier, maxSize int64, recorder metrics.Recorder, logger *slog.Logger) *ImageService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &ImageService{
		repo:     repo,
		storage:  store,
		notifier: notifier,
		metrics:  recorder,
		logger:   logger,
		maxSize:  maxSize,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (s *ImageService) WithClock(now func() time.Time) *ImageService {
	s.now = now
	return s
}

// MaxSize returns the upload size cap in bytes.
func (s *ImageService) MaxSize() int64 {
	return s.maxSize
}

// UploadInput defines input for an upload. Size is the declared length,
// or -1 when unknown.
type UploadInput struct {
	File     io.Reader
	Filename string
	Size     int64
}

// Upload validates, stores and records an image, then announces it.
// Every validation runs before the blob is written.
func (s *ImageService) Upload(ctx context.Context, input UploadInput) (*model.Image, error) {
	start := s.now()

	if input.Size == 0 {
		s.metrics.IncUploadRejected("empty")
		return nil, ErrEmptyFile
	}
	if input.Size > s.maxSize {
		s.metrics.IncUploadRejected("size")
		return nil, ErrFileTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(input.File, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		s.metrics.IncUploadRejected("empty")
		return nil, ErrEmptyFile
	}

	mimeType, err := detectImageType(head, input.Filename)
	if err != nil {
		s.metrics.IncUploadRejected("mime")
		return nil, err
	}

	now := s.now().UTC()
	id := ulid.Make().String()
	displayName := filepath.Base(strings.ReplaceAll(input.Filename, `\`, "/"))
	key := storageKey(now, id, displayName)

	body := &limitedReader{r: io.MultiReader(bytes.NewReader(head), input.File), remaining: s.maxSize}
	if err := s.storage.Save(ctx, key, body, mimeType); err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			s.metrics.IncUploadRejected("size")
			s.removeBlob(ctx, key)
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("store image: %w", err)
	}

	img := &model.Image{
		ID:          id,
		Filename:    displayName,
		StoragePath: key,
		MimeType:    mimeType,
		Size:        body.read,
		State:       model.ImageStateActive,
		CreatedAt:   now,
	}

	if err := s.repo.CreateImage(ctx, img); err != nil {
		s.removeBlob(ctx, key)
		return nil, fmt.Errorf("record image: %w", err)
	}

	s.metrics.IncImageUploaded()
	s.metrics.ObserveUploadDuration(s.now().Sub(start))
	s.logger.Info("image uploaded", "image_id", img.ID, "size", img.Size, "mime_type", img.MimeType,
		"user_id", auth.UserIDFromContext(ctx), "token_id", auth.TokenIDFromContext(ctx))

	s.publish(ctx, model.NewCreatedEvent(s.Response(img)))
	return img, nil
}

// List returns up to ListLimit active images, newest first.
func (s *ImageService) List(ctx context.Context) ([]*model.Image, error) {
	images, err := s.repo.ListActiveImages(ctx, ListLimit)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return images, nil
}

// Delete soft-deletes an image. The blob is retained.
func (s *ImageService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.SoftDeleteImage(ctx, id, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return ErrImageNotFound
		}
		return fmt.Errorf("delete image: %w", err)
	}

	s.metrics.IncImageDeleted()
	s.logger.Info("image deleted", "image_id", id,
		"user_id", auth.UserIDFromContext(ctx), "token_id", auth.TokenIDFromContext(ctx))

	s.publish(ctx, model.NewDeletedEvent(id))
	return nil
}

// Response builds the public representation with a resolved URL.
func (s *ImageService) Response(img *model.Image) model.ImageResponse {
	return img.ToResponse(s.storage.URL(img.StoragePath))
}

// publish is best-effort: a lost notification never fails the mutation.
func (s *ImageService) publish(ctx context.Context, event model.ChangeEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish change event", "type", event.Type, "id", event.ID, "error", err)
		return
	}
	s.metrics.IncEventPublished()
}

func (s *ImageService) removeBlob(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Error("failed to remove orphaned blob", "key", key, "error", err)
	}
}

// detectImageType sniffs content and checks the extension agrees with it.
func detectImageType(head []byte, filename string) (string, error) {
	mimeType := http.DetectContentType(head)
	exts, ok := allowedTypes[mimeType]
	if !ok {
		return "", ErrUnsupportedMediaType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range exts {
		if ext == allowed {
			return mimeType, nil
		}
	}
	return "", ErrUnsupportedMediaType
}

// storageKey builds images/<unix>_<id>_<name>.
func storageKey(now time.Time, id, filename string) string {
	return fmt.Sprintf("%s/%d_%s_%s", imageDir, now.Unix(), strings.ToLower(id), sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxStoredNameLen {
		ext := filepath.Ext(out)
		out = out[:maxStoredNameLen-len(ext)] + ext
	}
	if out == "" {
		out = "image"
	}
	return out
}

// limitedReader counts bytes and fails once more than remaining are read,
// catching bodies whose declared size was missing or wrong.
type limitedReader struct {
	r         io.Reader
	remaining int64
	read      int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.remaining {
		return n, ErrFileTooLarge
	}
	return n, err
}
