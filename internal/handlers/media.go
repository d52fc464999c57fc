package handlers

import (
	"net/http"

	"social-feed-app/internal/middleware"
	"social-feed-app/internal/services"

	"github.com/rs/zerolog/log"
)

// Uploads are capped at 10 MiB.
const maxUploadBytes = 10 << 20

// MediaHandler handles image upload HTTP requests.
type MediaHandler struct {
	mediaService *services.MediaService
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

type uploadResponse struct {
	FilePath string `json:"file_path"`
}

// Upload handles POST /upload/image with a multipart file field.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondDetail(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondDetail(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	path, err := h.mediaService.Upload(r.Context(), header.Filename, contentType, file)
	if err != nil {
		log.Error().Err(err).Int("user_id", userID).Str("filename", header.Filename).Msg("Failed to upload image")
		respondDetail(w, "Failed to upload image", http.StatusInternalServerError)
		return
	}

	log.Info().Int("user_id", userID).Str("file_path", path).Msg("Image uploaded")
	respondJSON(w, http.StatusOK, uploadResponse{FilePath: path})
}
