// Package model defines domain entities for the application.
package model

import (
	"slices"
	"time"
)

// Ability constants for API token authorization.
const (
	AbilityUpload   = "upload"
	AbilityDelete   = "delete"
	AbilityWildcard = "*"
)

// ValidAbilities contains all named ability values.
var ValidAbilities = []string{AbilityUpload, AbilityDelete}

// APIToken represents an issued API token.
type APIToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	SecretHash string     `json:"-"` // Never serialize
	Abilities  []string   `json:"abilities"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsWildcard reports whether the token grants every ability.
func (t *APIToken) IsWildcard() bool {
	return slices.Contains(t.Abilities, AbilityWildcard)
}

// Can checks if the token grants a specific ability.
// The wildcard grants all abilities.
func (t *APIToken) Can(ability string) bool {
	if t.IsWildcard() {
		return true
	}
	return slices.Contains(t.Abilities, ability)
}

// IsExpired returns true once now has reached expires_at.
// Tokens without an expiry never expire.
func (t *APIToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// APITokenCreateRequest represents a request to issue a token.
type APITokenCreateRequest struct {
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Abilities []string   `json:"abilities"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// APITokenResponse represents a token without its secret.
type APITokenResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Abilities  []string   `json:"abilities"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	IsExpired  bool       `json:"is_expired"`
}

// ToResponse converts an APIToken to APITokenResponse.
func (t *APIToken) ToResponse(now time.Time) APITokenResponse {
	return APITokenResponse{
		ID:         t.ID,
		UserID:     t.UserID,
		Name:       t.Name,
		Abilities:  t.Abilities,
		LastUsedAt: t.LastUsedAt,
		ExpiresAt:  t.ExpiresAt,
		CreatedAt:  t.CreatedAt,
		IsExpired:  t.IsExpired(now),
	}
}

// APITokenCreateResponse includes the plaintext secret (shown only once).
type APITokenCreateResponse struct {
	Token          APITokenResponse `json:"token"`
	PlaintextToken string           `json:"plaintext_token"` // display once only!
}
