package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mietwerk/mietwerk/internal/audit/domain"
	obscontext "github.com/mietwerk/mietwerk/internal/observability/context"
	"github.com/mietwerk/mietwerk/pkg/db/option"
	"github.com/mietwerk/mietwerk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	entries repository.Repository[domain.Entry]
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("audit.service"),
		genID:   p.GenID,
		entries: repository.ProvideStore[domain.Entry](p.DB),
	}
}

func (s *Service) Record(ctx context.Context, actorID *snowflake.ID, action, targetType, targetID string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return domain.ErrInvalidAction
	}
	if targetType = strings.TrimSpace(targetType); targetType == "" {
		targetType = "unknown"
	}

	payload := map[string]any{}
	for key, value := range metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := domain.Entry{
		ID:         s.genID.Generate(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   strings.TrimSpace(targetID),
		Metadata:   datatypes.JSONMap(payload),
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.entries.Create(ctx, &entry); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) ListForActor(ctx context.Context, actorID snowflake.ID, limit int) ([]*domain.Entry, error) {
	if limit <= 0 || limit > 250 {
		limit = 50
	}
	return s.entries.Find(ctx, &domain.Entry{ActorID: &actorID},
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
		option.WithLimit(limit),
	)
}
