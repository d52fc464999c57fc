package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-feed-app/internal/models"
	"social-feed-app/internal/repository"
)

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	ErrPostNotFound = errors.New("post not found")
	ErrEmptyText    = errors.New("text must not be empty")
)

// PostService handles feed assembly, posts, likes and comments.
type PostService struct {
	postRepo *repository.PostRepository
}

// NewPostService creates a new post service.
func NewPostService(postRepo *repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// Feed returns all posts newest-first with nested likes and comments.
func (s *PostService) Feed(ctx context.Context) ([]models.Post, error) {
	return s.postRepo.Feed(ctx)
}

// Create publishes a new post.
func (s *PostService) Create(ctx context.Context, userID int, description string, mediaURL *string) (*models.Post, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyText
	}
	post, err := s.postRepo.Create(ctx, userID, description, mediaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

// ToggleLike flips the user's like on a post server-side and returns the
// resulting liked state.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID int) (bool, error) {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return false, fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return false, ErrPostNotFound
	}
	return s.postRepo.ToggleLike(ctx, postID, userID)
}

// AddComment appends a comment to a post and returns the committed entry.
func (s *PostService) AddComment(ctx context.Context, postID, userID int, text string) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return nil, ErrPostNotFound
	}
	return s.postRepo.AddComment(ctx, postID, userID, text)
}
