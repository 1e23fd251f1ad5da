package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/mietwerk/mietwerk/internal/authorization"
	buildingdomain "github.com/mietwerk/mietwerk/internal/building/domain"
	"github.com/mietwerk/mietwerk/internal/flat/domain"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	personservice "github.com/mietwerk/mietwerk/internal/person/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type flatFixture struct {
	svc       domain.Service
	personSvc persondomain.Service
	db        *gorm.DB
	node      *snowflake.Node
	landlord  persondomain.Person
	tenant    persondomain.Person
	building  buildingdomain.Building
	flat      domain.Flat
}

func setupFlatFixture(t *testing.T) *flatFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&persondomain.Person{},
		&buildingdomain.Building{},
		&domain.Flat{},
		&meterdomain.Meter{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()

	personSvc := personservice.New(personservice.Params{DB: db, Log: logger, GenID: node})
	svc := New(Params{DB: db, Log: logger, PersonSvc: personSvc})

	ctx := context.Background()
	landlord, err := personSvc.Register(ctx, persondomain.RegisterRequest{
		FirstName: "Lena",
		LastName:  "Vogel",
		Email:     "lena.vogel@example.com",
		Password:  "landlord-pass-1",
		Landlord:  true,
	})
	require.NoError(t, err)

	tenant, err := personSvc.Register(ctx, persondomain.RegisterRequest{
		FirstName: "Timo",
		LastName:  "Berg",
		Email:     "timo.berg@example.com",
		Password:  "tenant-pass-1",
		Landlord:  true,
	})
	require.NoError(t, err)

	building := buildingdomain.Building{
		ID:         node.Generate(),
		LandlordID: landlord.ID,
		Street:     "hauptstrasse 1",
		City:       "berlin",
		Zip:        "10115",
		Country:    "de",
	}
	require.NoError(t, db.Create(&building).Error)

	flat := domain.Flat{
		ID:           node.Generate(),
		BuildingID:   building.ID,
		Location:     "EG links",
		Rooms:        3,
		SquareMeters: 100,
		Residents:    2,
	}
	require.NoError(t, db.Create(&flat).Error)

	return &flatFixture{
		svc:       svc,
		personSvc: personSvc,
		db:        db,
		node:      node,
		landlord:  landlord,
		tenant:    tenant,
		building:  building,
		flat:      flat,
	}
}

func TestAssignTenant(t *testing.T) {
	f := setupFlatFixture(t)
	ctx := context.Background()

	updated, err := f.svc.AssignTenant(ctx, f.landlord, domain.AssignTenantRequest{
		BuildingID:  f.building.ID,
		FlatID:      f.flat.ID,
		TenantEmail: "timo.berg@example.com",
		Residents:   intPtr(3),
	})
	require.NoError(t, err)

	require.NotNil(t, updated.TenantID)
	assert.Equal(t, f.tenant.ID, *updated.TenantID)
	assert.Equal(t, 3, updated.Residents)

	// The tenancy grants the tenant capability when missing.
	person, err := f.personSvc.Get(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.True(t, person.HasCapability(persondomain.CapabilityTenant))
}

func intPtr(v int) *int {
	return &v
}

func TestAssignTenantZeroResidents(t *testing.T) {
	f := setupFlatFixture(t)

	updated, err := f.svc.AssignTenant(context.Background(), f.landlord, domain.AssignTenantRequest{
		BuildingID:  f.building.ID,
		FlatID:      f.flat.ID,
		TenantEmail: "timo.berg@example.com",
		Residents:   intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Residents)
}

func TestAssignTenantNegativeResidents(t *testing.T) {
	f := setupFlatFixture(t)

	_, err := f.svc.AssignTenant(context.Background(), f.landlord, domain.AssignTenantRequest{
		BuildingID:  f.building.ID,
		FlatID:      f.flat.ID,
		TenantEmail: "timo.berg@example.com",
		Residents:   intPtr(-1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidResidents)
}

func TestAssignTenantKeepsExistingResidents(t *testing.T) {
	f := setupFlatFixture(t)

	updated, err := f.svc.AssignTenant(context.Background(), f.landlord, domain.AssignTenantRequest{
		BuildingID:  f.building.ID,
		FlatID:      f.flat.ID,
		TenantEmail: "timo.berg@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, f.flat.Residents, updated.Residents)
}

func TestAssignTenantForbiddenForNonOwner(t *testing.T) {
	f := setupFlatFixture(t)

	_, err := f.svc.AssignTenant(context.Background(), f.tenant, domain.AssignTenantRequest{
		BuildingID:  f.building.ID,
		FlatID:      f.flat.ID,
		TenantEmail: "timo.berg@example.com",
	})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestAssignTenantFlatNotInBuilding(t *testing.T) {
	f := setupFlatFixture(t)
	ctx := context.Background()

	other := buildingdomain.Building{
		ID:         f.node.Generate(),
		LandlordID: f.landlord.ID,
		Street:     "nebenstrasse 3",
		City:       "berlin",
		Zip:        "10115",
		Country:    "de",
	}
	require.NoError(t, f.db.Create(&other).Error)

	_, err := f.svc.AssignTenant(ctx, f.landlord, domain.AssignTenantRequest{
		BuildingID:  other.ID,
		FlatID:      f.flat.ID,
		TenantEmail: "timo.berg@example.com",
	})
	assert.ErrorIs(t, err, domain.ErrFlatNotInBuilding)
}

func TestAssignTenantCreatesContactPerson(t *testing.T) {
	f := setupFlatFixture(t)
	ctx := context.Background()

	updated, err := f.svc.AssignTenant(ctx, f.landlord, domain.AssignTenantRequest{
		BuildingID:      f.building.ID,
		FlatID:          f.flat.ID,
		TenantFirstName: "Mara",
		TenantLastName:  "Klein",
		Residents:       intPtr(1),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.TenantID)

	contact, err := f.personSvc.Get(ctx, *updated.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "Mara", contact.FirstName)
	assert.Equal(t, "Klein", contact.LastName)
	assert.Nil(t, contact.Email)
	assert.Nil(t, contact.PasswordHash)
	assert.True(t, contact.HasCapability(persondomain.CapabilityTenant))
}

func TestAssignTenantWithoutEmailOrName(t *testing.T) {
	f := setupFlatFixture(t)

	_, err := f.svc.AssignTenant(context.Background(), f.landlord, domain.AssignTenantRequest{
		BuildingID:      f.building.ID,
		FlatID:          f.flat.ID,
		TenantFirstName: "Mara",
	})
	assert.ErrorIs(t, err, domain.ErrNoTenantGiven)
}

func TestAssignTenantUnknownEmail(t *testing.T) {
	f := setupFlatFixture(t)

	_, err := f.svc.AssignTenant(context.Background(), f.landlord, domain.AssignTenantRequest{
		BuildingID:  f.building.ID,
		FlatID:      f.flat.ID,
		TenantEmail: "nobody@example.com",
	})
	assert.ErrorIs(t, err, persondomain.ErrPersonNotFound)
}

func TestListForTenant(t *testing.T) {
	f := setupFlatFixture(t)
	ctx := context.Background()

	_, err := f.svc.AssignTenant(ctx, f.landlord, domain.AssignTenantRequest{
		BuildingID:  f.building.ID,
		FlatID:      f.flat.ID,
		TenantEmail: "timo.berg@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Create(&meterdomain.Meter{
		ID:     f.node.Generate(),
		FlatID: f.flat.ID,
		Number: "M-1001",
		Type:   meterdomain.MeterElectricity,
	}).Error)

	views, err := f.svc.ListForTenant(ctx, f.tenant)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, f.flat.ID, views[0].Flat.ID)
	require.Len(t, views[0].Meters, 1)

	views, err = f.svc.ListForTenant(ctx, f.landlord)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestLandlordLookup(t *testing.T) {
	f := setupFlatFixture(t)
	ctx := context.Background()

	_, err := f.svc.AssignTenant(ctx, f.landlord, domain.AssignTenantRequest{
		BuildingID:  f.building.ID,
		FlatID:      f.flat.ID,
		TenantEmail: "timo.berg@example.com",
	})
	require.NoError(t, err)

	landlord, err := f.svc.Landlord(ctx, f.tenant, f.flat.ID)
	require.NoError(t, err)
	assert.Equal(t, f.landlord.ID, landlord.ID)

	// Only the flat's tenant may look up the landlord.
	_, err = f.svc.Landlord(ctx, f.landlord, f.flat.ID)
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}
