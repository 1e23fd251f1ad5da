package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Landlord  bool   `json:"landlord"`
}

type ModifyRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (Person, error)
	// RegisterContact creates a person without email or credentials. Such
	// records exist only as tenants on a flat and cannot log in.
	RegisterContact(ctx context.Context, firstName, lastName string) (Person, error)
	Get(ctx context.Context, id snowflake.ID) (Person, error)
	FindByEmail(ctx context.Context, email string) (Person, error)
	Modify(ctx context.Context, id snowflake.ID, req ModifyRequest) (Person, error)
	ChangePassword(ctx context.Context, id snowflake.ID, req ChangePasswordRequest) error
	GrantCapability(ctx context.Context, id snowflake.ID, capability Capability) error
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrPersonNotFound  = errors.New("person_not_found")
	ErrEmailTaken      = errors.New("email_taken")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPassword = errors.New("invalid_password")
	ErrWrongPassword   = errors.New("wrong_password")
	ErrOwnsBuildings   = errors.New("person_owns_buildings")
)
