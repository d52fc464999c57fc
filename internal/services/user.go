package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-feed-app/internal/models"
	"social-feed-app/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const searchLimit = 50

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	ErrUserExists         = errors.New("email or username already exists")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotFollowing       = errors.New("follow relation not found")
)

// UserService handles accounts, authentication and the follow relation.
type UserService struct {
	userRepo  *repository.UserRepository
	jwtSecret string
	jwtTTL    time.Duration
}

// NewUserService creates a new user service.
func NewUserService(userRepo *repository.UserRepository, jwtSecret string, jwtTTL time.Duration) *UserService {
	return &UserService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, email, username, password string, location *string) (*models.User, error) {
	exists, err := s.userRepo.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, email, username, string(hash), location)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and returns a signed access token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, hash, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return s.GenerateJWT(user.ID, user.Username)
}

// GenerateJWT signs a token carrying the user's id and username.
func (s *UserService) GenerateJWT(userID int, username string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      now.Add(s.jwtTTL).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT validates a token and returns the user id it carries.
func (s *UserService) ValidateJWT(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("user_id not found in token")
	}
	return int(userID), nil
}

// GetByID retrieves a user by id.
func (s *UserService) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Search retrieves users whose username matches the query.
func (s *UserService) Search(ctx context.Context, query string) ([]models.User, error) {
	users, err := s.userRepo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Follow starts following another user.
func (s *UserService) Follow(ctx context.Context, followerID, followeeID int) error {
	exists, err := s.userRepo.Exists(ctx, followeeID)
	if err != nil {
		return fmt.Errorf("failed to check followee: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return s.userRepo.Follow(ctx, followerID, followeeID)
}

// Unfollow stops following another user. Returns ErrNotFollowing when no
// relation existed; callers may tolerate that.
func (s *UserService) Unfollow(ctx context.Context, followerID, followeeID int) error {
	deleted, err := s.userRepo.Unfollow(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFollowing
	}
	return nil
}
