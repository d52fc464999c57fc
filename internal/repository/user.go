package repository

import (
	"context"
	"fmt"

	"social-feed-app/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users and the follow
// relation.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and returns it with its assigned id.
func (r *UserRepository) Create(ctx context.Context, email, username, hashedPassword string, location *string) (*models.User, error) {
	query := `
		INSERT INTO users (email, username, hashed_password, location)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	user := models.User{Email: email, Username: username, Location: location}
	err := r.db.QueryRow(ctx, query, email, username, hashedPassword, location).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves a user and their password hash by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, string, error) {
	query := `
		SELECT id, email, username, hashed_password, location
		FROM users
		WHERE email = $1
	`
	var user models.User
	var hash string
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Username, &hash, &user.Location,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", fmt.Errorf("user not found: %w", err)
		}
		return nil, "", fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, hash, nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `
		SELECT id, email, username, location
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Username, &user.Location,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ExistsByEmailOrUsername checks whether either identifier is taken.
func (r *UserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 OR username = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, email, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// Search retrieves users whose username contains the query, basic shape
// only.
func (r *UserRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	sql := `
		SELECT id, username, location
		FROM users
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY username
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Location); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Follow inserts a follow relation. Inserting an existing relation is a
// no-op.
func (r *UserRepository) Follow(ctx context.Context, followerID, followeeID int) error {
	query := `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}
	return nil
}

// Unfollow deletes a follow relation and reports whether one existed.
func (r *UserRepository) Unfollow(ctx context.Context, followerID, followeeID int) (bool, error) {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`
	result, err := r.db.Exec(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Exists checks whether a user id exists.
func (r *UserRepository) Exists(ctx context.Context, id int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}
