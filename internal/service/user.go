package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/photobooth/gallery/internal/auth"
	"github.com/photobooth/gallery/internal/model"
	"github.com/photobooth/gallery/internal/repository"
)

// UserService manages token owners.
type UserService struct {
	users  UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users UserRepository, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, logger: logger}
}

// CreateUserInput defines input for creating a user.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
}

// Create validates and stores a new user with an argon2id password hash.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}

	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxTokenNameLength {
		return nil, ErrInvalidName
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}

// GetByEmail looks a user up by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
