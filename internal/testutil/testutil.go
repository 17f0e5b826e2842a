// Package testutil holds shared helpers for unit and integration tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/photobooth/gallery/internal/auth"
	"github.com/photobooth/gallery/internal/model"
	"github.com/redis/go-redis/v9"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 710710

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a user with a unique email.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	id := ulid.Make().String()
	return &model.User{
		ID:           id,
		Email:        fmt.Sprintf("booth-%s@example.com", id),
		Name:         "Photobooth",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		CreatedAt:    time.Now().UTC(),
	}
}

// NewTestToken creates a token for userID and returns it with its plaintext.
func NewTestToken(t testing.TB, userID string, abilities ...string) (*model.APIToken, string) {
	t.Helper()
	generated, err := auth.GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if len(abilities) == 0 {
		abilities = []string{model.AbilityWildcard}
	}
	return &model.APIToken{
		ID:         ulid.Make().String(),
		UserID:     userID,
		Name:       "test token",
		SecretHash: generated.Hash,
		Abilities:  abilities,
		CreatedAt:  time.Now().UTC(),
	}, generated.Plaintext
}

// NewTestImage creates active image metadata created at the given time.
func NewTestImage(t testing.TB, createdAt time.Time) *model.Image {
	t.Helper()
	id := ulid.Make().String()
	return &model.Image{
		ID:          id,
		Filename:    "photo.png",
		StoragePath: "images/" + id + ".png",
		MimeType:    "image/png",
		Size:        1024,
		State:       model.ImageStateActive,
		CreatedAt:   createdAt.UTC(),
	}
}

// Magic numbers recognized by content sniffing.
var (
	pngSignature  = []byte("\x89PNG\r\n\x1a\n")
	gifSignature  = []byte("GIF89a")
	jpegSignature = []byte{0xFF, 0xD8, 0xFF, 0xE0}
)

// PNGBytes returns size bytes that sniff as image/png.
func PNGBytes(size int) []byte { return withSignature(pngSignature, size) }

// GIFBytes returns size bytes that sniff as image/gif.
func GIFBytes(size int) []byte { return withSignature(gifSignature, size) }

// JPEGBytes returns size bytes that sniff as image/jpeg.
func JPEGBytes(size int) []byte { return withSignature(jpegSignature, size) }

func withSignature(sig []byte, size int) []byte {
	if size < len(sig) {
		size = len(sig)
	}
	buf := bytes.Repeat([]byte{0x01}, size)
	copy(buf, sig)
	return buf
}
