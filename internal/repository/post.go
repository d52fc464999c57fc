package repository

import (
	"context"
	"fmt"

	"social-feed-app/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostRepository handles database operations for posts and their nested
// likes and comments.
type PostRepository struct {
	db *pgxpool.Pool
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *pgxpool.Pool) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a new post and returns it fully assembled.
func (r *PostRepository) Create(ctx context.Context, userID int, description string, mediaURL *string) (*models.Post, error) {
	query := `
		INSERT INTO posts (user_id, description, media_url)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var postID int
	if err := r.db.QueryRow(ctx, query, userID, description, mediaURL).Scan(&postID); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return r.GetByID(ctx, postID)
}

// GetByID retrieves one post with author, likes and comments.
func (r *PostRepository) GetByID(ctx context.Context, postID int) (*models.Post, error) {
	query := `
		SELECT p.id, p.description, p.media_url,
		       u.id, u.username, u.location
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
	`
	var post models.Post
	err := r.db.QueryRow(ctx, query, postID).Scan(
		&post.ID, &post.Description, &post.MediaURL,
		&post.Author.ID, &post.Author.Username, &post.Author.Location,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("post not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	likes, err := r.likesByPost(ctx, []int{post.ID})
	if err != nil {
		return nil, err
	}
	comments, err := r.commentsByPost(ctx, []int{post.ID})
	if err != nil {
		return nil, err
	}
	post.Likes = likes[post.ID]
	post.Comments = comments[post.ID]
	if post.Likes == nil {
		post.Likes = []models.Like{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	return &post, nil
}

// Feed retrieves all posts newest-first with nested likes and comments.
func (r *PostRepository) Feed(ctx context.Context) ([]models.Post, error) {
	query := `
		SELECT p.id, p.description, p.media_url,
		       u.id, u.username, u.location
		FROM posts p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC, p.id DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	var ids []int
	for rows.Next() {
		var post models.Post
		err := rows.Scan(
			&post.ID, &post.Description, &post.MediaURL,
			&post.Author.ID, &post.Author.Username, &post.Author.Location,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		post.Likes = []models.Like{}
		post.Comments = []models.Comment{}
		posts = append(posts, post)
		ids = append(ids, post.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	if len(posts) == 0 {
		return []models.Post{}, nil
	}

	likes, err := r.likesByPost(ctx, ids)
	if err != nil {
		return nil, err
	}
	comments, err := r.commentsByPost(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if l, ok := likes[posts[i].ID]; ok {
			posts[i].Likes = l
		}
		if c, ok := comments[posts[i].ID]; ok {
			posts[i].Comments = c
		}
	}
	return posts, nil
}

// likesByPost loads like entries with their users for a set of posts.
func (r *PostRepository) likesByPost(ctx context.Context, postIDs []int) (map[int][]models.Like, error) {
	query := `
		SELECT l.post_id, u.id, u.username, u.location
		FROM likes l
		JOIN users u ON u.id = l.user_id
		WHERE l.post_id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get likes: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]models.Like)
	for rows.Next() {
		var postID int
		var user models.User
		if err := rows.Scan(&postID, &user.ID, &user.Username, &user.Location); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		out[postID] = append(out[postID], models.Like{User: user})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating likes: %w", err)
	}
	return out, nil
}

// commentsByPost loads comments newest-first with their authors for a set
// of posts.
func (r *PostRepository) commentsByPost(ctx context.Context, postIDs []int) (map[int][]models.Comment, error) {
	query := `
		SELECT c.post_id, c.id, c.text,
		       u.id, u.username, u.location
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = ANY($1)
		ORDER BY c.created_at DESC, c.id DESC
	`
	rows, err := r.db.Query(ctx, query, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]models.Comment)
	for rows.Next() {
		var postID int
		var comment models.Comment
		err := rows.Scan(
			&postID, &comment.ID, &comment.Text,
			&comment.Author.ID, &comment.Author.Username, &comment.Author.Location,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		out[postID] = append(out[postID], comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return out, nil
}

// Exists checks whether a post id exists.
func (r *PostRepository) Exists(ctx context.Context, postID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, postID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return exists, nil
}

// ToggleLike removes the user's like when present, otherwise inserts one.
// Returns the resulting liked state.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID int) (bool, error) {
	del := `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`
	result, err := r.db.Exec(ctx, del, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove like: %w", err)
	}
	if result.RowsAffected() > 0 {
		return false, nil
	}

	ins := `
		INSERT INTO likes (post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, ins, postID, userID); err != nil {
		return false, fmt.Errorf("failed to add like: %w", err)
	}
	return true, nil
}

// AddComment inserts a comment and returns it with its author.
func (r *PostRepository) AddComment(ctx context.Context, postID, userID int, text string) (*models.Comment, error) {
	query := `
		INSERT INTO comments (post_id, user_id, text)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var comment models.Comment
	comment.Text = text
	if err := r.db.QueryRow(ctx, query, postID, userID, text).Scan(&comment.ID); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	author := `SELECT id, username, location FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, author, userID).Scan(
		&comment.Author.ID, &comment.Author.Username, &comment.Author.Location,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment author: %w", err)
	}
	return &comment, nil
}
