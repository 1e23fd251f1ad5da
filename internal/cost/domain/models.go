package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Distribution selects how a shared cost is split across the flats of a
// building. Costs attached directly to a flat use DistributionNone and
// are charged in full.
type Distribution string

const (
	DistributionByFlat         Distribution = "BY_FLAT"
	DistributionBySquareMeters Distribution = "BY_SQUARE_METERS"
	DistributionByPerson       Distribution = "BY_PERSON"
	DistributionNone           Distribution = "NONE"
)

func (d Distribution) Valid() bool {
	switch d {
	case DistributionByFlat, DistributionBySquareMeters, DistributionByPerson, DistributionNone:
		return true
	default:
		return false
	}
}

// Frequency is how often an operating cost amount recurs.
type Frequency string

const (
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	default:
		return false
	}
}

// Factor converts one recurrence amount into a yearly total.
func (f Frequency) Factor() float64 {
	switch f {
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	default:
		return 1
	}
}

// AdditionalCost is an operating cost attached to a building (shared,
// apportioned by Distribution) or to a single flat.
type AdditionalCost struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	BuildingID   *snowflake.ID `gorm:"index" json:"building_id,omitempty"`
	FlatID       *snowflake.ID `gorm:"index" json:"flat_id,omitempty"`
	Name         string        `gorm:"not null" json:"name"`
	Description  string        `json:"description,omitempty"`
	Amount       float64       `gorm:"not null" json:"amount"`
	Distribution *Distribution `json:"distribution,omitempty"`
	Frequency    Frequency     `gorm:"not null" json:"frequency"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AdditionalCost) TableName() string {
	return "additional_costs"
}
