// Package auth registers users, logs them in with email and password,
// and authenticates bearer tokens on later requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"drivepulse/internal/db"
	"drivepulse/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUnauthorized       = errors.New("could not validate credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

// UserStore is implemented by *db.Store.
type UserStore interface {
	CreateUser(ctx context.Context, u *db.User) error
	UserByEmail(ctx context.Context, email string) (*db.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*db.User, error)
}

type RegisterRequest struct {
	Email      string  `json:"email" validate:"required,email,max=255"`
	Password   string  `json:"password" validate:"required,min=6,max=72"`
	FullName   *string `json:"full_name" validate:"omitempty,max=255"`
	University *string `json:"university" validate:"omitempty,max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserView is the public representation of a user.
type UserView struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FullName   *string   `json:"full_name"`
	University *string   `json:"university"`
	CreatedAt  time.Time `json:"created_at"`
}

func ViewOf(u *db.User) *UserView {
	return &UserView{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		University: u.University,
		CreatedAt:  u.CreatedAt,
	}
}

type Service struct {
	users  UserStore
	tokens *TokenManager
}

func NewService(users UserStore, tokens *TokenManager) *Service {
	return &Service{users: users, tokens: tokens}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*UserView, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validation.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &db.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		University:   req.University,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return ViewOf(u), nil
}

// Login checks the credentials and issues an access token. Unknown email
// and wrong password return the same error.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	u, err := s.users.UserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !CheckPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// Authenticate resolves a bearer token to its user. Any token problem,
// including a deleted user, is ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, token string) (*db.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject: %v", ErrUnauthorized, err)
	}

	u, err := s.users.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
