package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Flat is a rentable unit of a building. TenantID is nil while vacant.
type Flat struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	BuildingID   snowflake.ID  `gorm:"not null;index" json:"building_id"`
	TenantID     *snowflake.ID `gorm:"index" json:"tenant_id,omitempty"`
	Location     string        `gorm:"not null" json:"location"`
	Rooms        int           `gorm:"not null" json:"rooms"`
	SquareMeters int           `gorm:"not null" json:"square_meters"`
	Residents    int           `gorm:"not null" json:"residents"`
	ColdRent     float64       `gorm:"not null" json:"cold_rent"`
	WarmRent     float64       `gorm:"not null" json:"warm_rent"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Flat) TableName() string {
	return "flats"
}
