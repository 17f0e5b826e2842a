package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/photobooth/gallery/internal/model"
	"github.com/photobooth/gallery/internal/service"
)

// TokenHandler handles API token management endpoints.
type TokenHandler struct {
	svc    *service.TokenService
	logger *slog.Logger
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(svc *service.TokenService, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{svc: svc, logger: logger}
}

// Create handles POST /api/tokens.
// The plaintext token appears in this response only.
func (h *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.APITokenCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "user_id is required")
		return
	}

	token, plaintext, err := h.svc.Issue(r.Context(), service.IssueTokenInput{
		UserID:    req.UserID,
		Name:      req.Name,
		Abilities: req.Abilities,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.APITokenCreateResponse{
		Token:          token.ToResponse(time.Now()),
		PlaintextToken: plaintext,
	})
}

// List handles GET /api/tokens/user/{userId}.
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.svc.List(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	now := time.Now()
	data := make([]model.APITokenResponse, 0, len(tokens))
	for _, t := range tokens {
		data = append(data, t.ToResponse(now))
	}
	writeJSON(w, http.StatusOK, listResponse[model.APITokenResponse]{Data: data})
}

// Revoke handles DELETE /api/tokens/user/{userId}/{tokenId}.
func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Revoke(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "tokenId"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

// RevokeAll handles DELETE /api/tokens/user/{userId}.
func (h *TokenHandler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.RevokeAll(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}
