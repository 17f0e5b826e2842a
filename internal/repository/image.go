package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/photobooth/gallery/internal/model"
)

// Common errors for image repository operations.
var (
	ErrImageNotFound = errors.New("image not found")
)

const imageColumns = `id, filename, storage_path, mime_type, size_bytes, state, created_at, deleted_at`

// CreateImage inserts image metadata.
func (r *Repository) CreateImage(ctx context.Context, img *model.Image) error {
	query := `
		INSERT INTO images (id, filename, storage_path, mime_type, size_bytes, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		img.ID,
		img.Filename,
		img.StoragePath,
		img.MimeType,
		img.Size,
		string(img.State),
		img.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	return nil
}

// ListActiveImages returns up to limit active images, newest first.
func (r *Repository) ListActiveImages(ctx context.Context, limit int) ([]*model.Image, error) {
	query := `
		SELECT ` + imageColumns + `
		FROM images
		WHERE state = 'active'
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := make([]*model.Image, 0, limit)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}

	return images, nil
}

// SoftDeleteImage marks an active image as deleted and returns the updated record.
// Returns ErrImageNotFound if the image is unknown or already deleted.
func (r *Repository) SoftDeleteImage(ctx context.Context, id string, at time.Time) (*model.Image, error) {
	query := `
		UPDATE images
		SET state = 'deleted', deleted_at = $2
		WHERE id = $1 AND state = 'active'
		RETURNING ` + imageColumns

	return scanImage(r.pool.QueryRow(ctx, query, id, at))
}

func scanImage(row pgx.Row) (*model.Image, error) {
	var img model.Image
	var state string

	err := row.Scan(
		&img.ID,
		&img.Filename,
		&img.StoragePath,
		&img.MimeType,
		&img.Size,
		&state,
		&img.CreatedAt,
		&img.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}

	img.State = model.ImageState(state)
	return &img, nil
}
