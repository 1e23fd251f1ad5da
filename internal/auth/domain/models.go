package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Session struct {
	Token     string       `gorm:"primaryKey" json:"-"`
	PersonID  snowflake.ID `gorm:"not null;index" json:"person_id"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	RevokedAt *time.Time   `json:"revoked_at,omitempty"`
}

func (Session) TableName() string {
	return "sessions"
}
