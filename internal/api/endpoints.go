package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"social-feed-app/internal/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type registerRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Location *string `json:"location,omitempty"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type createPostRequest struct {
	Description string  `json:"description"`
	MediaURL    *string `json:"media_url,omitempty"`
}

type uploadResponse struct {
	FilePath string `json:"file_path"`
}

// Login authenticates and stores the returned token in the session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/login", loginRequest{Email: email, Password: password}, false, &resp); err != nil {
		return err
	}
	if err := c.session.Set(resp.AccessToken); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Register creates a new account. The caller logs in separately.
func (c *Client) Register(ctx context.Context, email, username, password string, location *string) error {
	req := registerRequest{Email: email, Username: username, Password: password, Location: location}
	return c.do(ctx, http.MethodPost, "/register", req, false, nil)
}

// Me fetches the authenticated user's identity.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, true, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Feed fetches the full feed, newest posts first.
func (c *Client) Feed(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/feed", nil, true, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// SearchUsers returns users whose username matches query.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	var users []models.User
	path := "/users/search?query=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, true, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// LikePost toggles the authenticated user's like on a post. The toggle
// itself happens server-side; the same call serves like and unlike.
func (c *Client) LikePost(ctx context.Context, postID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/like", postID), nil, true, nil)
}

// Follow starts following the given user.
func (c *Client) Follow(ctx context.Context, userID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/follow", userID), nil, true, nil)
}

// Unfollow stops following the given user. A 404 means the relation is
// already gone, which is the intended end state, so it is not an error.
func (c *Client) Unfollow(ctx context.Context, userID int) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/follow", userID), nil, true, nil)
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil
	}
	return err
}

// CreateComment posts a comment and returns the server's committed entry
// with its assigned id and canonical author.
func (c *Client) CreateComment(ctx context.Context, postID int, text string) (*models.Comment, error) {
	var comment models.Comment
	path := fmt.Sprintf("/posts/%d/comments", postID)
	if err := c.do(ctx, http.MethodPost, path, commentRequest{Text: text}, true, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// CreatePost publishes a new post.
func (c *Client) CreatePost(ctx context.Context, description string, mediaURL *string) (*models.Post, error) {
	var post models.Post
	req := createPostRequest{Description: description, MediaURL: mediaURL}
	if err := c.do(ctx, http.MethodPost, "/posts", req, true, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UploadImage uploads an image as multipart form data and returns the
// server-side file path to reference from a post.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	token, ok := c.session.Token()
	if !ok {
		c.authLost()
		return "", &Error{Kind: KindUnauthenticated, Message: "Not signed in"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/image", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	var resp uploadResponse
	if err := c.send(req, true, &resp); err != nil {
		return "", err
	}
	return resp.FilePath, nil
}
