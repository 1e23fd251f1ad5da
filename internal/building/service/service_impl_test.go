package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/mietwerk/mietwerk/internal/audit/domain"
	auditservice "github.com/mietwerk/mietwerk/internal/audit/service"
	"github.com/mietwerk/mietwerk/internal/authorization"
	"github.com/mietwerk/mietwerk/internal/building/domain"
	"github.com/mietwerk/mietwerk/internal/clock"
	costdomain "github.com/mietwerk/mietwerk/internal/cost/domain"
	flatdomain "github.com/mietwerk/mietwerk/internal/flat/domain"
	invoicedomain "github.com/mietwerk/mietwerk/internal/invoice/domain"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	personservice "github.com/mietwerk/mietwerk/internal/person/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type buildingFixture struct {
	svc       domain.Service
	personSvc persondomain.Service
	db        *gorm.DB
	node      *snowflake.Node
	landlord  persondomain.Person
	tenant    persondomain.Person
}

func setupBuildingFixture(t *testing.T) *buildingFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&persondomain.Person{},
		&domain.Building{},
		&flatdomain.Flat{},
		&meterdomain.Meter{},
		&meterdomain.ReadingUpdate{},
		&costdomain.AdditionalCost{},
		&invoicedomain.Invoice{},
		&auditdomain.Entry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()

	personSvc := personservice.New(personservice.Params{DB: db, Log: logger, GenID: node})
	auditSvc := auditservice.New(auditservice.Params{DB: db, Log: logger, GenID: node})

	svc := New(Params{
		DB:        db,
		Log:       logger,
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)),
		PersonSvc: personSvc,
		AuditSvc:  auditSvc,
	})

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
	})
	require.NoError(t, err)

	return &buildingFixture{svc: svc, personSvc: personSvc, db: db, node: node, landlord: landlord, tenant: tenant}
}

func sampleRequest() domain.CreateBuildingRequest {
	return domain.CreateBuildingRequest{
		Street:  "Hauptstrasse 12",
		City:    "Berlin",
		Zip:     "10115",
		Country: "DE",
		Flats: []domain.FlatSpec{
			{
				Location:     "EG links",
				Rooms:        3,
				SquareMeters: 100,
				Residents:    2,
				ColdRent:     300,
				WarmRent:     450,
				Meters: []domain.MeterSpec{
					{Number: "M-1001", Type: meterdomain.MeterGas, Reading: 1000, CostPerUnit: 0.48, BaseCost: 12.50},
				},
			},
		},
		Costs: []domain.CostSpec{
			{
				Name:         "Property tax",
				Amount:       25,
				Distribution: distributionPtr(costdomain.DistributionByFlat),
				Frequency:    costdomain.FrequencyMonthly,
			},
		},
	}
}

func distributionPtr(d costdomain.Distribution) *costdomain.Distribution {
	return &d
}

func TestCreateBuilding(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	view, err := f.svc.Create(ctx, f.landlord, sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, f.landlord.ID, view.Building.LandlordID)
	assert.Equal(t, "hauptstrasse 12", view.Building.Street)
	require.Len(t, view.Flats, 1)
	require.Len(t, view.Flats[0].Meters, 1)
	require.Len(t, view.Costs, 1)

	// Every meter gets a baseline reading at creation time.
	var readings int64
	require.NoError(t, f.db.Model(&meterdomain.ReadingUpdate{}).
		Where("meter_id = ?", view.Flats[0].Meters[0].ID).Count(&readings).Error)
	assert.Equal(t, int64(1), readings)
}

func TestCreateBuildingGrantsLandlordCapability(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	require.False(t, f.tenant.HasCapability(persondomain.CapabilityLandlord))

	view, err := f.svc.Create(ctx, f.tenant, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, f.tenant.ID, view.Building.LandlordID)

	reloaded, err := f.personSvc.Get(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.HasCapability(persondomain.CapabilityLandlord))
}

func TestCreateBuildingDuplicateAddress(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.landlord, sampleRequest())
	require.NoError(t, err)

	// Same address with different casing and a fresh meter number still
	// collides.
	req := sampleRequest()
	req.Street = "HAUPTSTRASSE 12"
	req.Flats[0].Meters[0].Number = "M-2002"
	_, err = f.svc.Create(ctx, f.landlord, req)
	assert.ErrorIs(t, err, domain.ErrBuildingExists)
}

func TestCreateBuildingDistinctStateNotDuplicate(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	first := sampleRequest()
	first.State = "Bavaria"
	_, err := f.svc.Create(ctx, f.landlord, first)
	require.NoError(t, err)

	// Same street/city/zip/country but a blank state is a different
	// address and must pass the duplicate check.
	second := sampleRequest()
	second.Flats[0].Meters[0].Number = "M-2002"
	view, err := f.svc.Create(ctx, f.landlord, second)
	require.NoError(t, err)
	assert.Equal(t, "", view.Building.State)

	// The blank state itself is still unique.
	third := sampleRequest()
	third.Flats[0].Meters[0].Number = "M-3003"
	_, err = f.svc.Create(ctx, f.landlord, third)
	assert.ErrorIs(t, err, domain.ErrBuildingExists)
}

func TestCreateBuildingDuplicateMeterNumber(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.landlord, sampleRequest())
	require.NoError(t, err)

	req := sampleRequest()
	req.Street = "Nebenstrasse 3"
	_, err = f.svc.Create(ctx, f.landlord, req)
	assert.ErrorIs(t, err, domain.ErrMeterNumberTaken)
}

func TestCreateBuildingDuplicateMeterNumberWithinRequest(t *testing.T) {
	f := setupBuildingFixture(t)

	req := sampleRequest()
	req.Flats[0].Meters = append(req.Flats[0].Meters, req.Flats[0].Meters[0])
	_, err := f.svc.Create(context.Background(), f.landlord, req)
	assert.ErrorIs(t, err, domain.ErrMeterNumberTaken)
}

func TestCreateBuildingValidation(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	req := sampleRequest()
	req.Street = "   "
	_, err := f.svc.Create(ctx, f.landlord, req)
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	req = sampleRequest()
	req.Flats[0].SquareMeters = 0
	_, err = f.svc.Create(ctx, f.landlord, req)
	assert.ErrorIs(t, err, domain.ErrInvalidFlat)

	req = sampleRequest()
	req.Flats[0].Meters[0].Type = "STEAM"
	_, err = f.svc.Create(ctx, f.landlord, req)
	assert.ErrorIs(t, err, domain.ErrInvalidMeter)

	req = sampleRequest()
	req.Costs[0].Frequency = "DAILY"
	_, err = f.svc.Create(ctx, f.landlord, req)
	assert.ErrorIs(t, err, domain.ErrInvalidCost)
}

func TestModifyBuilding(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	view, err := f.svc.Create(ctx, f.landlord, sampleRequest())
	require.NoError(t, err)

	street := "Gartenweg 7"
	updated, err := f.svc.Modify(ctx, f.landlord, view.Building.ID, domain.ModifyBuildingRequest{Street: &street})
	require.NoError(t, err)
	assert.Equal(t, "gartenweg 7", updated.Street)
	assert.Equal(t, view.Building.City, updated.City)
}

func TestModifyBuildingAddsFlatsAndCosts(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	view, err := f.svc.Create(ctx, f.landlord, sampleRequest())
	require.NoError(t, err)

	_, err = f.svc.Modify(ctx, f.landlord, view.Building.ID, domain.ModifyBuildingRequest{
		Flats: []domain.FlatSpec{
			{
				Location:     "OG rechts",
				Rooms:        2,
				SquareMeters: 60,
				Residents:    1,
				ColdRent:     250,
				WarmRent:     360,
				Meters: []domain.MeterSpec{
					{Number: "M-3003", Type: meterdomain.MeterElectricity, Reading: 500, CostPerUnit: 0.32, BaseCost: 8},
				},
			},
		},
		Costs: []domain.CostSpec{
			{
				Name:         "Garden maintenance",
				Amount:       40,
				Distribution: distributionPtr(costdomain.DistributionByPerson),
				Frequency:    costdomain.FrequencyQuarterly,
			},
		},
	})
	require.NoError(t, err)

	reloaded, err := f.svc.Get(ctx, f.landlord, view.Building.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Flats, 2)
	require.Len(t, reloaded.Costs, 2)

	// The new meter starts its history with a baseline reading.
	var meter meterdomain.Meter
	require.NoError(t, f.db.Where("number = ?", "M-3003").First(&meter).Error)
	var readings int64
	require.NoError(t, f.db.Model(&meterdomain.ReadingUpdate{}).
		Where("meter_id = ?", meter.ID).Count(&readings).Error)
	assert.Equal(t, int64(1), readings)
}

func TestModifyBuildingRejectsTakenMeterNumber(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	view, err := f.svc.Create(ctx, f.landlord, sampleRequest())
	require.NoError(t, err)

	_, err = f.svc.Modify(ctx, f.landlord, view.Building.ID, domain.ModifyBuildingRequest{
		Flats: []domain.FlatSpec{
			{
				Location:     "OG links",
				Rooms:        2,
				SquareMeters: 55,
				Residents:    1,
				ColdRent:     240,
				WarmRent:     340,
				Meters: []domain.MeterSpec{
					{Number: "M-1001", Type: meterdomain.MeterGas, Reading: 0, CostPerUnit: 0.48, BaseCost: 12.50},
				},
			},
		},
	})
	assert.ErrorIs(t, err, domain.ErrMeterNumberTaken)

	var flats int64
	require.NoError(t, f.db.Model(&flatdomain.Flat{}).Count(&flats).Error)
	assert.Equal(t, int64(1), flats)
}

func TestModifyBuildingToExistingAddress(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.landlord, sampleRequest())
	require.NoError(t, err)

	second := sampleRequest()
	second.Street = "Nebenstrasse 3"
	second.Flats[0].Meters[0].Number = "M-2002"
	view, err := f.svc.Create(ctx, f.landlord, second)
	require.NoError(t, err)

	street := "Hauptstrasse 12"
	_, err = f.svc.Modify(ctx, f.landlord, view.Building.ID, domain.ModifyBuildingRequest{Street: &street})
	assert.ErrorIs(t, err, domain.ErrBuildingExists)
}

func TestDeleteBuildingCascades(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	view, err := f.svc.Create(ctx, f.landlord, sampleRequest())
	require.NoError(t, err)

	flatID := view.Flats[0].Flat.ID
	require.NoError(t, f.db.Create(&invoicedomain.Invoice{
		ID:         f.node.Generate(),
		FlatID:     flatID,
		BuildingID: view.Building.ID,
		TenantID:   f.tenant.ID,
		ForYear:    2025,
	}).Error)

	require.NoError(t, f.svc.Delete(ctx, f.landlord, view.Building.ID))

	for table, model := range map[string]any{
		"buildings":        &domain.Building{},
		"flats":            &flatdomain.Flat{},
		"meters":           &meterdomain.Meter{},
		"reading_updates":  &meterdomain.ReadingUpdate{},
		"additional_costs": &costdomain.AdditionalCost{},
		"invoices":         &invoicedomain.Invoice{},
	} {
		var count int64
		require.NoError(t, f.db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "expected %s to be empty", table)
	}
}

func TestDeleteBuildingForbiddenForStranger(t *testing.T) {
	f := setupBuildingFixture(t)
	ctx := context.Background()

	view, err := f.svc.Create(ctx, f.landlord, sampleRequest())
	require.NoError(t, err)

	err = f.svc.Delete(ctx, f.tenant, view.Building.ID)
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	var count int64
	require.NoError(t, f.db.Model(&domain.Building{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetBuildingNotFound(t *testing.T) {
	f := setupBuildingFixture(t)

	_, err := f.svc.Get(context.Background(), f.landlord, f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrBuildingNotFound)
}
