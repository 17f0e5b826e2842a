package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/photobooth/gallery/internal/model"
	"github.com/photobooth/gallery/internal/service"
)

const (
	// UploadField is the multipart field carrying the image.
	UploadField = "image"

	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
)

// ImageHandler handles upload, listing and deletion of gallery images.
type ImageHandler struct {
	svc    *service.ImageService
	logger *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(svc *service.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{svc: svc, logger: logger}
}

// Upload handles POST /api/images (multipart, field "image").
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.svc.MaxSize() + multipartOverhead
	if r.ContentLength > limit {
		writeError(w, http.StatusUnprocessableEntity, "FILE_TOO_LARGE", service.ErrFileTooLarge.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusUnprocessableEntity, "FILE_TOO_LARGE", service.ErrFileTooLarge.Error())
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request must be multipart/form-data")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "The image field is required")
		return
	}
	defer file.Close()

	img, err := h.svc.Upload(r.Context(), service.UploadInput{
		File:     file,
		Filename: header.Filename,
		Size:     header.Size,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.svc.Response(img))
}

// List handles GET /api/images.
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.svc.List(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	data := make([]model.ImageResponse, 0, len(images))
	for _, img := range images {
		data = append(data, h.svc.Response(img))
	}
	writeJSON(w, http.StatusOK, listResponse[model.ImageResponse]{Data: data})
}

type deleteImageResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete handles DELETE /api/images/{id}.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteImageResponse{Deleted: true, ID: id})
}
