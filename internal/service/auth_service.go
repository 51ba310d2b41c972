package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"moviecat/internal/auth"
	"moviecat/internal/domain"
	"moviecat/internal/repository"
)

// TokenSigner issues and verifies access tokens.
type TokenSigner interface {
	Sign(user domain.User) (string, error)
	Parse(token string) (*auth.Claims, error)
}

// Identity is the caller resolved from a bearer token.
type Identity struct {
	UserID string
	Email  string
	Role   domain.Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}

// AuthService validates credentials and resolves bearer tokens.
type AuthService interface {
	Login(ctx context.Context, in LoginInput) (string, error)
	Identify(ctx context.Context, token string) (*Identity, error)
}

type authService struct {
	users  repository.UserRepository
	tokens TokenSigner
}

func NewAuthService(users repository.UserRepository, tokens TokenSigner) AuthService {
	return &authService{users: users, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Sign(*user)
}

// Identify verifies the token and loads the caller's current account, so
// deleted users are rejected and role changes apply immediately.
func (s *authService) Identify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", ErrUnauthenticated)
		}
		return nil, err
	}
	return &Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}
