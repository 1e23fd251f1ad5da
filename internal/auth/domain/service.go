package domain

import (
	"context"
	"errors"

	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Session Session
	Person  persondomain.Person
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (LoginResult, error)
	Logout(ctx context.Context, token string) error
	// Resolve validates a raw session token and returns the owning person.
	Resolve(ctx context.Context, token string) (persondomain.Person, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidSession     = errors.New("invalid_session")
	ErrSessionExpired     = errors.New("session_expired")
	ErrSessionRevoked     = errors.New("session_revoked")
)
