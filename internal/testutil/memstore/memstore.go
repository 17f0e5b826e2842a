// Package memstore provides in-memory fakes of the repository and blob
// storage layers for unit tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/photobooth/gallery/internal/model"
	"github.com/photobooth/gallery/internal/repository"
)

// Store implements the user, token and image repositories in memory.
// Sentinel errors match the PostgreSQL repository.
type Store struct {
	mu     sync.Mutex
	users  map[string]*model.User
	tokens map[string]*model.APIToken
	images map[string]*model.Image

	// Err, when set, is returned from every call.
	Err error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:  make(map[string]*model.User),
		tokens: make(map[string]*model.APIToken),
		images: make(map[string]*model.Image),
	}
}

func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// DeleteUser removes a user and cascades to its tokens.
func (s *Store) DeleteUser(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	for tid, t := range s.tokens {
		if t.UserID == id {
			delete(s.tokens, tid)
		}
	}
}

func (s *Store) CreateToken(_ context.Context, token *model.APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[token.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *token
	cp.Abilities = slices.Clone(token.Abilities)
	s.tokens[token.ID] = &cp
	return nil
}

func (s *Store) GetTokenByHash(_ context.Context, secretHash string) (*model.APIToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, t := range s.tokens {
		if t.SecretHash == secretHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrTokenNotFound
}

// GetTokenByID returns a copy of the stored token.
func (s *Store) GetTokenByID(_ context.Context, id string) (*model.APIToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTokensByUser(_ context.Context, userID string) ([]*model.APIToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*model.APIToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) TouchToken(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if t, ok := s.tokens[id]; ok {
		t.LastUsedAt = &at
	}
	return nil
}

func (s *Store) DeleteToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.tokens[id]; !ok {
		return repository.ErrTokenNotFound
	}
	delete(s.tokens, id)
	return nil
}

func (s *Store) DeleteUserToken(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	t, ok := s.tokens[id]
	if !ok || t.UserID != userID {
		return repository.ErrTokenNotFound
	}
	delete(s.tokens, id)
	return nil
}

func (s *Store) DeleteTokensByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for id, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateImage(_ context.Context, img *model.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cp := *img
	s.images[img.ID] = &cp
	return nil
}

// GetImageByID returns a copy of the stored image in any state.
func (s *Store) GetImageByID(_ context.Context, id string) (*model.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[id]
	if !ok {
		return nil, repository.ErrImageNotFound
	}
	cp := *img
	return &cp, nil
}

func (s *Store) ListActiveImages(_ context.Context, limit int) ([]*model.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]*model.Image, 0, len(s.images))
	for _, img := range s.images {
		if !img.IsDeleted() {
			cp := *img
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SoftDeleteImage(_ context.Context, id string, at time.Time) (*model.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	img, ok := s.images[id]
	if !ok || img.IsDeleted() {
		return nil, repository.ErrImageNotFound
	}
	img.MarkDeleted(at)
	cp := *img
	return &cp, nil
}
