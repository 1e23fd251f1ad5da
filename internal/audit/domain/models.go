package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Entry is one append-only audit record. ActorID is nil for actions the
// system performs on its own (seeding, migrations).
type Entry struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorID    *snowflake.ID     `gorm:"index" json:"actor_id,omitempty"`
	Action     string            `gorm:"not null;index" json:"action"`
	TargetType string            `gorm:"not null" json:"target_type"`
	TargetID   string            `json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (Entry) TableName() string {
	return "audit_entries"
}

type Service interface {
	Record(ctx context.Context, actorID *snowflake.ID, action, targetType, targetID string, metadata map[string]any) error
	// ListForActor returns the newest entries for one actor.
	ListForActor(ctx context.Context, actorID snowflake.ID, limit int) ([]*Entry, error)
}

var ErrInvalidAction = errors.New("invalid_action")
