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

// UserHandler handles account, profile and follow HTTP requests.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type registerRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Location *string `json:"location,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register handles POST /register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		respondDetail(w, "email, username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userService.Register(r.Context(), req.Email, req.Username, req.Password, req.Location)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			respondDetail(w, "Email or username already exists", http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to register user")
		respondDetail(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	log.Info().Int("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	respondJSON(w, http.StatusOK, user)
}

// Login handles POST /login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			respondDetail(w, "Incorrect email or password", http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to log user in")
		respondDetail(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int("user_id", userID).Msg("Failed to load current user")
		respondDetail(w, "User not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Search handles GET /users/search?query=.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	users, err := h.userService.Search(r.Context(), query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Failed to search users")
		respondDetail(w, "Failed to search users", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Follow handles POST /users/{id}/follow.
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID := middleware.GetUserID(r.Context())
	followeeID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	if err := h.userService.Follow(r.Context(), followerID, followeeID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondDetail(w, "User not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int("follower_id", followerID).Int("followee_id", followeeID).Msg("Failed to follow user")
		respondDetail(w, "Failed to follow user", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unfollow handles DELETE /users/{id}/follow. An absent relation still
// answers 404, which clients treat as the intended end state.
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID := middleware.GetUserID(r.Context())
	followeeID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	if err := h.userService.Unfollow(r.Context(), followerID, followeeID); err != nil {
		if errors.Is(err, services.ErrNotFollowing) {
			respondDetail(w, "Not following", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int("follower_id", followerID).Int("followee_id", followeeID).Msg("Failed to unfollow user")
		respondDetail(w, "Failed to unfollow user", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
