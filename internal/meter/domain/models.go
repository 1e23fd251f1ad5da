package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type MeterType string

const (
	MeterElectricity MeterType = "ELECTRICITY"
	MeterGas         MeterType = "GAS"
	MeterHotWater    MeterType = "HOT_WATER"
	MeterColdWater   MeterType = "COLD_WATER"
	MeterSewage      MeterType = "SEWAGE"
)

func (t MeterType) Valid() bool {
	switch t {
	case MeterElectricity, MeterGas, MeterHotWater, MeterColdWater, MeterSewage:
		return true
	default:
		return false
	}
}

// Meter tracks a single utility counter of a flat. Reading mirrors the
// latest accepted counter value so list views avoid a history scan.
type Meter struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	FlatID      snowflake.ID `gorm:"not null;index" json:"flat_id"`
	Number      string       `gorm:"not null;uniqueIndex" json:"number"`
	Type        MeterType    `gorm:"not null" json:"type"`
	Reading     int64        `gorm:"not null" json:"reading"`
	CostPerUnit float64      `gorm:"not null" json:"cost_per_unit"`
	BaseCost    float64      `gorm:"not null" json:"base_cost"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Meter) TableName() string {
	return "meters"
}

// ReadingUpdate is one accepted counter value. RecordedBy is nil for the
// initial value captured when the meter is registered.
type ReadingUpdate struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	MeterID    snowflake.ID  `gorm:"not null;index" json:"meter_id"`
	Reading    int64         `gorm:"not null" json:"reading"`
	RecordedBy *snowflake.ID `json:"recorded_by,omitempty"`
	RecordedAt time.Time     `gorm:"not null;index" json:"recorded_at"`
}

func (ReadingUpdate) TableName() string {
	return "reading_updates"
}
