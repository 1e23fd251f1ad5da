package seed

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mietwerk/mietwerk/internal/auth/password"
	buildingdomain "github.com/mietwerk/mietwerk/internal/building/domain"
	costdomain "github.com/mietwerk/mietwerk/internal/cost/domain"
	flatdomain "github.com/mietwerk/mietwerk/internal/flat/domain"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	demoLandlordEmail = "landlord@example.com"
	demoTenantEmail   = "tenant@example.com"
	demoPassword      = "change-me-now"
)

// EnsureDemoData seeds a landlord, a tenant and one building with one
// rented flat so a fresh local install is explorable. It is a no-op
// when any person already exists.
func EnsureDemoData(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&persondomain.Person{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		return err
	}

	hashed, err := password.Hash(demoPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	landlordEmail := demoLandlordEmail
	tenantEmail := demoTenantEmail

	landlord := persondomain.Person{
		ID:           node.Generate(),
		FirstName:    "Lena",
		LastName:     "Vogel",
		Email:        &landlordEmail,
		PasswordHash: &hashed,
		Capabilities: datatypes.NewJSONSlice([]persondomain.Capability{persondomain.CapabilityLandlord}),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tenant := persondomain.Person{
		ID:           node.Generate(),
		FirstName:    "Timo",
		LastName:     "Brandt",
		Email:        &tenantEmail,
		PasswordHash: &hashed,
		Capabilities: datatypes.NewJSONSlice([]persondomain.Capability{persondomain.CapabilityTenant}),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	building := buildingdomain.Building{
		ID:         node.Generate(),
		LandlordID: landlord.ID,
		Street:     "hauptstrasse 12",
		City:       "berlin",
		Zip:        "10115",
		Country:    "germany",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	tenantID := tenant.ID
	flat := flatdomain.Flat{
		ID:           node.Generate(),
		BuildingID:   building.ID,
		TenantID:     &tenantID,
		Location:     "2nd floor left",
		Rooms:        3,
		SquareMeters: 72,
		Residents:    2,
		ColdRent:     850,
		WarmRent:     1050,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	meter := meterdomain.Meter{
		ID:          node.Generate(),
		FlatID:      flat.ID,
		Number:      "EL-100-001",
		Type:        meterdomain.MeterElectricity,
		Reading:     10000,
		CostPerUnit: 0.35,
		BaseCost:    96,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	initialReading := meterdomain.ReadingUpdate{
		ID:         node.Generate(),
		MeterID:    meter.ID,
		Reading:    meter.Reading,
		RecordedAt: now,
	}

	distribution := costdomain.DistributionBySquareMeters
	buildingID := building.ID
	cost := costdomain.AdditionalCost{
		ID:           node.Generate(),
		BuildingID:   &buildingID,
		Name:         "Property tax",
		Amount:       120,
		Distribution: &distribution,
		Frequency:    costdomain.FrequencyQuarterly,
		CreatedAt:    now,
	}

	return conn.Transaction(func(tx *gorm.DB) error {
		for _, record := range []any{&landlord, &tenant, &building, &flat, &meter, &initialReading, &cost} {
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
