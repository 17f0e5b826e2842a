// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/photobooth/gallery/internal/model"
)

// Service errors.
var (
	// Validation
	ErrInvalidName          = errors.New("name must be between 1 and 255 characters")
	ErrInvalidAbility       = errors.New("abilities must be upload, delete, or *")
	ErrExpiresInPast        = errors.New("expires_at must be in the future")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrEmptyFile            = errors.New("file is empty")
	ErrFileTooLarge         = errors.New("file exceeds maximum upload size")
	ErrUnsupportedMediaType = errors.New("file must be a png, gif, or jpeg image")

	// Authentication
	ErrInvalidToken = errors.New("invalid API token")
	ErrTokenExpired = errors.New("API token has expired")

	// Lookup
	ErrOwnerNotFound = errors.New("user not found")
	ErrEmailExists   = errors.New("email already exists")
	ErrTokenNotFound = errors.New("API token not found")
	ErrImageNotFound = errors.New("image not found")
)

// UserRepository is the user persistence the services need.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// TokenRepository is the API token persistence, keyed by owner.
type TokenRepository interface {
	CreateToken(ctx context.Context, token *model.APIToken) error
	GetTokenByHash(ctx context.Context, secretHash string) (*model.APIToken, error)
	ListTokensByUser(ctx context.Context, userID string) ([]*model.APIToken, error)
	TouchToken(ctx context.Context, id string, at time.Time) error
	DeleteToken(ctx context.Context, id string) error
	DeleteUserToken(ctx context.Context, userID, id string) error
	DeleteTokensByUser(ctx context.Context, userID string) (int64, error)
}

// ImageRepository is the image metadata persistence.
type ImageRepository interface {
	CreateImage(ctx context.Context, img *model.Image) error
	ListActiveImages(ctx context.Context, limit int) ([]*model.Image, error)
	SoftDeleteImage(ctx context.Context, id string, at time.Time) (*model.Image, error)
}

// IsValidation reports whether err is a client input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidAbility) ||
		errors.Is(err, ErrExpiresInPast) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrUnsupportedMediaType)
}
