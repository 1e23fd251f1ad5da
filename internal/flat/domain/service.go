package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
)

// AssignTenantRequest names the new tenant either by the email of a
// registered account or, for tenants without one, by first and last
// name. A name-only tenant is created as a contact person on the spot.
type AssignTenantRequest struct {
	BuildingID      snowflake.ID
	FlatID          snowflake.ID
	TenantEmail     string
	TenantFirstName string
	TenantLastName  string
	// Residents replaces the flat's count when set; zero is a valid
	// count, so absence is a nil pointer rather than a zero value.
	Residents *int
}

// FlatView is the tenant-facing picture of a rented flat.
type FlatView struct {
	Flat   Flat                 `json:"flat"`
	Meters []*meterdomain.Meter `json:"meters"`
}

type Service interface {
	// AssignTenant links a person to a flat and grants them the tenant
	// capability, creating a contact person first when the request only
	// carries a name. Only the landlord of the building may call it.
	AssignTenant(ctx context.Context, actor persondomain.Person, req AssignTenantRequest) (Flat, error)
	// ListForTenant returns the flats the actor currently rents.
	ListForTenant(ctx context.Context, actor persondomain.Person) ([]FlatView, error)
	// Landlord returns the contact record of the landlord owning the
	// flat. Only the flat's tenant may call it.
	Landlord(ctx context.Context, actor persondomain.Person, flatID snowflake.ID) (persondomain.Person, error)
}

var (
	ErrFlatNotFound      = errors.New("flat_not_found")
	ErrFlatNotInBuilding = errors.New("flat_not_in_building")
	ErrInvalidResidents  = errors.New("invalid_residents")
	ErrNoTenantGiven     = errors.New("no_tenant_given")
)
