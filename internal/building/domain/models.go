package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Building is owned by exactly one landlord. Address fields are stored
// lower-cased so the uniqueness check is case-insensitive.
type Building struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	LandlordID snowflake.ID `gorm:"not null;index" json:"landlord_id"`
	Street     string       `gorm:"not null;uniqueIndex:idx_buildings_address" json:"street"`
	City       string       `gorm:"not null;uniqueIndex:idx_buildings_address" json:"city"`
	State      string       `gorm:"uniqueIndex:idx_buildings_address" json:"state"`
	Zip        string       `gorm:"not null;uniqueIndex:idx_buildings_address" json:"zip"`
	Country    string       `gorm:"not null;uniqueIndex:idx_buildings_address" json:"country"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Building) TableName() string {
	return "buildings"
}
