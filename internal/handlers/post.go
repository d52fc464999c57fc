package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"social-feed-app/internal/middleware"
	"social-feed-app/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PostHandler handles feed, post, like and comment HTTP requests.
type PostHandler struct {
	postService *services.PostService
}

// NewPostHandler creates a new post handler.
func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

type createPostRequest struct {
	Description string  `json:"description"`
	MediaURL    *string `json:"media_url,omitempty"`
}

type commentRequest struct {
	Text string `json:"text"`
}

// Feed handles GET /feed.
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.Feed(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load feed")
		respondDetail(w, "Failed to load feed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// Create handles POST /posts.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	post, err := h.postService.Create(r.Context(), userID, req.Description, req.MediaURL)
	if err != nil {
		if errors.Is(err, services.ErrEmptyText) {
			respondDetail(w, "description is required", http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Int("user_id", userID).Msg("Failed to create post")
		respondDetail(w, "Failed to create post", http.StatusInternalServerError)
		return
	}

	log.Info().Int("post_id", post.ID).Int("user_id", userID).Msg("Post created")
	respondJSON(w, http.StatusOK, post)
}

// ToggleLike handles POST /posts/{id}/like. The toggle is resolved
// server-side: one endpoint serves like and unlike.
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(w, "Invalid post id", http.StatusBadRequest)
		return
	}

	liked, err := h.postService.ToggleLike(r.Context(), postID, userID)
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			respondDetail(w, "Post not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int("post_id", postID).Int("user_id", userID).Msg("Failed to toggle like")
		respondDetail(w, "Failed to toggle like", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

// CreateComment handles POST /posts/{id}/comments.
func (h *PostHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	postID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(w, "Invalid post id", http.StatusBadRequest)
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	comment, err := h.postService.AddComment(r.Context(), postID, userID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyText):
			respondDetail(w, "text is required", http.StatusBadRequest)
		case errors.Is(err, services.ErrPostNotFound):
			respondDetail(w, "Post not found", http.StatusNotFound)
		default:
			log.Error().Err(err).Int("post_id", postID).Int("user_id", userID).Msg("Failed to create comment")
			respondDetail(w, "Failed to create comment", http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusOK, comment)
}
