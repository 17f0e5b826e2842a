package service

import (
	"context"
	"errors"
	"testing"

	"github.com/photobooth/gallery/internal/auth"
	"github.com/photobooth/gallery/internal/testutil/memstore"
)

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memstore.New(), nil)

	user, err := svc.Create(ctx, CreateUserInput{Email: " Booth@Example.com ", Name: "Booth", Password: "s3cretpass"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if user.Email != "booth@example.com" {
		t.Errorf("Email = %q, want normalized", user.Email)
	}
	ok, err := auth.VerifyPassword("s3cretpass", user.PasswordHash)
	if err != nil || !ok {
		t.Errorf("password hash does not verify: %v", err)
	}

	got, err := svc.GetByEmail(ctx, "BOOTH@example.com")
	if err != nil || got.ID != user.ID {
		t.Errorf("GetByEmail = %v, %v", got, err)
	}

	if _, err := svc.Create(ctx, CreateUserInput{Email: "booth@example.com", Name: "Dup", Password: "s3cretpass"}); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate Create error = %v, want ErrEmailExists", err)
	}
}

func TestUserService_CreateValidation(t *testing.T) {
	svc := NewUserService(memstore.New(), nil)

	tests := []struct {
		name    string
		input   CreateUserInput
		wantErr error
	}{
		{"bad email", CreateUserInput{Email: "nope", Name: "x", Password: "s3cretpass"}, ErrInvalidEmail},
		{"display-name email", CreateUserInput{Email: "Bob <bob@example.com>", Name: "x", Password: "s3cretpass"}, ErrInvalidEmail},
		{"empty name", CreateUserInput{Email: "a@example.com", Name: "", Password: "s3cretpass"}, ErrInvalidName},
		{"short password", CreateUserInput{Email: "a@example.com", Name: "x", Password: "short"}, auth.ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUserService_GetByEmailNotFound(t *testing.T) {
	svc := NewUserService(memstore.New(), nil)

	if _, err := svc.GetByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, ErrOwnerNotFound) {
		t.Errorf("GetByEmail error = %v, want ErrOwnerNotFound", err)
	}
}
