package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/photobooth/gallery/internal/model"
)

// Common errors for API token repository operations.
var (
	ErrTokenNotFound = errors.New("API token not found")
)

const tokenColumns = `id, user_id, name, secret_hash, abilities, last_used_at, expires_at, created_at`

// CreateToken inserts a new API token.
// Returns ErrUserNotFound if the owner does not exist.
func (r *Repository) CreateToken(ctx context.Context, token *model.APIToken) error {
	query := `
		INSERT INTO api_tokens (id, user_id, name, secret_hash, abilities, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.Name,
		token.SecretHash,
		pq.Array(token.Abilities),
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create API token: %w", err)
	}

	return nil
}

// GetTokenByHash retrieves the token whose secret digest matches.
// Expired tokens are returned; callers decide what expiry means.
func (r *Repository) GetTokenByHash(ctx context.Context, secretHash string) (*model.APIToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM api_tokens WHERE secret_hash = $1`
	return scanToken(r.pool.QueryRow(ctx, query, secretHash))
}

// ListTokensByUser retrieves all tokens for a user, newest first.
func (r *Repository) ListTokensByUser(ctx context.Context, userID string) ([]*model.APIToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM api_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*model.APIToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API tokens: %w", err)
	}

	return tokens, nil
}

// TouchToken sets last_used_at.
func (r *Repository) TouchToken(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE api_tokens SET last_used_at = $2 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to touch API token: %w", err)
	}
	return nil
}

// DeleteUserToken hard-deletes one token owned by userID.
// Returns ErrTokenNotFound when nothing matched.
func (r *Repository) DeleteUserToken(ctx context.Context, userID, id string) error {
	query := `DELETE FROM api_tokens WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete API token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// DeleteTokensByUser hard-deletes every token owned by userID and returns the count.
func (r *Repository) DeleteTokensByUser(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM api_tokens WHERE user_id = $1`

	result, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete API tokens: %w", err)
	}
	return result.RowsAffected(), nil
}

// scanToken scans a pgx.Row (or pgx.Rows) into an APIToken.
func scanToken(row pgx.Row) (*model.APIToken, error) {
	var token model.APIToken
	var abilities []string

	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.Name,
		&token.SecretHash,
		pq.Array(&abilities),
		&token.LastUsedAt,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to scan API token: %w", err)
	}

	token.Abilities = abilities
	return &token, nil
}

// DeleteToken hard-deletes a token by id regardless of owner.
// Returns ErrTokenNotFound when nothing matched.
func (r *Repository) DeleteToken(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM api_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete API token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}
