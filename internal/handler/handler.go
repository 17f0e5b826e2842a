// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/photobooth/gallery/internal/service"
)

// Handler serves the service index and router fallbacks.
type Handler struct {
	version string
}

// New creates a new Handler instance.
func New(version string) *Handler {
	return &Handler{version: version}
}

// Index describes the service.
// GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "photobooth-gallery",
		"version": h.version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// listResponse wraps collections as {"data": [...]}.
type listResponse[T any] struct {
	Data []T `json:"data"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// handleServiceError maps service sentinels to HTTP responses.
// Unclassified errors are logged and answered with a generic 500.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		writeError(w, http.StatusUnprocessableEntity, "FILE_TOO_LARGE", err.Error())
	case errors.Is(err, service.ErrUnsupportedMediaType):
		writeError(w, http.StatusUnprocessableEntity, "UNSUPPORTED_MEDIA_TYPE", err.Error())
	case service.IsValidation(err):
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrOwnerNotFound):
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "user_id does not reference an existing user")
	case errors.Is(err, service.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "API token not found")
	case errors.Is(err, service.ErrImageNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Image not found")
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
