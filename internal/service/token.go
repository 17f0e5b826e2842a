package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/photobooth/gallery/internal/auth"
	"github.com/photobooth/gallery/internal/metrics"
	"github.com/photobooth/gallery/internal/model"
	"github.com/photobooth/gallery/internal/repository"
)

const (
	maxTokenNameLength = 255
	touchTimeout       = 5 * time.Second
)

// TokenService issues, authenticates and revokes API tokens.
type TokenService struct {
	tokens  TokenRepository
	users   UserRepository
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time

	touches sync.WaitGroup
}

// NewTokenService creates a new TokenService.
func NewTokenService(tokens TokenRepository, users UserRepository, recorder metrics.Recorder, logger *slog.Logger) *TokenService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{
		tokens:  tokens,
		users:   users,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// IssueTokenInput defines input for issuing a token.
type IssueTokenInput struct {
	UserID    string
	Name      string
	Abilities []string
	ExpiresAt *time.Time
}

// Issue creates a token and returns it with the plaintext secret.
// The plaintext is never stored and cannot be recovered later.
func (s *TokenService) Issue(ctx context.Context, input IssueTokenInput) (*model.APIToken, string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxTokenNameLength {
		return nil, "", ErrInvalidName
	}

	abilities, err := normalizeAbilities(input.Abilities)
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, "", ErrExpiresInPast
	}

	if _, err := s.users.GetUserByID(ctx, input.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrOwnerNotFound
		}
		return nil, "", fmt.Errorf("lookup owner: %w", err)
	}

	generated, err := auth.GenerateToken()
	if err != nil {
		return nil, "", err
	}

	token := &model.APIToken{
		ID:         ulid.Make().String(),
		UserID:     input.UserID,
		Name:       name,
		SecretHash: generated.Hash,
		Abilities:  abilities,
		ExpiresAt:  input.ExpiresAt,
		CreatedAt:  now,
	}

	if err := s.tokens.CreateToken(ctx, token); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrOwnerNotFound
		}
		return nil, "", fmt.Errorf("create token: %w", err)
	}

	s.metrics.IncTokenIssued()
	s.logger.Info("api token issued",
		"token_id", token.ID,
		"user_id", token.UserID,
		"abilities", token.Abilities,
	)

	return token, generated.Plaintext, nil
}

// normalizeAbilities defaults to the wildcard, drops duplicates and rejects
// unknown names. The wildcard cannot be combined with named abilities.
func normalizeAbilities(in []string) ([]string, error) {
	if len(in) == 0 {
		return []string{model.AbilityWildcard}, nil
	}

	out := make([]string, 0, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a != model.AbilityWildcard && !slices.Contains(model.ValidAbilities, a) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAbility, a)
		}
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}

	if slices.Contains(out, model.AbilityWildcard) && len(out) > 1 {
		return nil, fmt.Errorf("%w: * cannot be combined with other abilities", ErrInvalidAbility)
	}
	return out, nil
}

// Authenticate resolves a plaintext secret to its token.
// Unknown secrets yield ErrInvalidToken; expired tokens yield ErrTokenExpired.
func (s *TokenService) Authenticate(ctx context.Context, secret string) (*model.APIToken, error) {
	if secret == "" {
		return nil, ErrInvalidToken
	}

	token, err := s.tokens.GetTokenByHash(ctx, auth.HashToken(secret))
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}

	if !auth.VerifyToken(secret, token.SecretHash) {
		return nil, ErrInvalidToken
	}
	if token.IsExpired(s.now()) {
		return nil, ErrTokenExpired
	}

	return token, nil
}

// Authorize reports whether token grants ability.
func (s *TokenService) Authorize(token *model.APIToken, ability string) bool {
	return token != nil && token.Can(ability)
}

// Touch records last use without blocking the caller.
// Failures are logged and otherwise ignored.
func (s *TokenService) Touch(ctx context.Context, token *model.APIToken) {
	at := s.now().UTC()
	s.touches.Add(1)

	go func() {
		defer s.touches.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), touchTimeout)
		defer cancel()

		if err := s.tokens.TouchToken(ctx, token.ID, at); err != nil {
			s.logger.Warn("failed to record token use", "token_id", token.ID, "error", err)
		}
	}()
}

// Wait blocks until in-flight Touch calls finish. Called during shutdown.
func (s *TokenService) Wait() {
	s.touches.Wait()
}

// List returns a user's tokens, newest first.
func (s *TokenService) List(ctx context.Context, userID string) ([]*model.APIToken, error) {
	tokens, err := s.tokens.ListTokensByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return tokens, nil
}

// Revoke deletes one token owned by userID.
func (s *TokenService) Revoke(ctx context.Context, userID, tokenID string) error {
	if err := s.tokens.DeleteUserToken(ctx, userID, tokenID); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("revoke token: %w", err)
	}

	s.metrics.IncTokenRevoked(1)
	s.logger.Info("api token revoked", "token_id", tokenID, "user_id", userID)
	return nil
}

// RevokeByID deletes a token by id alone. Used by the admin CLI.
func (s *TokenService) RevokeByID(ctx context.Context, tokenID string) error {
	if err := s.tokens.DeleteToken(ctx, tokenID); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("revoke token: %w", err)
	}

	s.metrics.IncTokenRevoked(1)
	s.logger.Info("api token revoked", "token_id", tokenID)
	return nil
}

// RevokeAll deletes every token owned by userID and returns how many were removed.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.tokens.DeleteTokensByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all tokens: %w", err)
	}

	s.metrics.IncTokenRevoked(int(n))
	s.logger.Info("api tokens revoked", "user_id", userID, "count", n)
	return n, nil
}
