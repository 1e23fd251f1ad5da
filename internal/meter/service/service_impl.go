package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/mietwerk/mietwerk/internal/authorization"
	buildingdomain "github.com/mietwerk/mietwerk/internal/building/domain"
	"github.com/mietwerk/mietwerk/internal/clock"
	flatdomain "github.com/mietwerk/mietwerk/internal/flat/domain"
	"github.com/mietwerk/mietwerk/internal/meter/domain"
	"github.com/mietwerk/mietwerk/internal/observability/logger"
	obsmetrics "github.com/mietwerk/mietwerk/internal/observability/metrics"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	"github.com/mietwerk/mietwerk/pkg/db/option"
	"github.com/mietwerk/mietwerk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	metrics   *obsmetrics.Metrics
	meters    repository.Repository[domain.Meter]
	readings  repository.Repository[domain.ReadingUpdate]
	flats     repository.Repository[flatdomain.Flat]
	buildings repository.Repository[buildingdomain.Building]
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("meter.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		metrics:   p.Metrics,
		meters:    repository.ProvideStore[domain.Meter](p.DB),
		readings:  repository.ProvideStore[domain.ReadingUpdate](p.DB),
		flats:     repository.ProvideStore[flatdomain.Flat](p.DB),
		buildings: repository.ProvideStore[buildingdomain.Building](p.DB),
	}
}

func (s *Service) SubmitReading(ctx context.Context, actor persondomain.Person, req domain.SubmitReadingRequest) (domain.ReadingUpdate, error) {
	meter, err := s.authorizedMeter(ctx, actor, req.MeterID)
	if err != nil {
		return domain.ReadingUpdate{}, err
	}

	if req.Reading < meter.Reading {
		return domain.ReadingUpdate{}, domain.ErrReadingNotMonotonic
	}

	actorID := actor.ID
	update := domain.ReadingUpdate{
		ID:         s.genID.Generate(),
		MeterID:    meter.ID,
		Reading:    req.Reading,
		RecordedBy: &actorID,
		RecordedAt: s.clock.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.readings.WithTrx(tx).Create(ctx, &update); err != nil {
			return err
		}
		return tx.Model(&domain.Meter{}).Where("id = ?", meter.ID).Updates(map[string]any{
			"reading":    req.Reading,
			"updated_at": update.RecordedAt,
		}).Error
	})
	if err != nil {
		return domain.ReadingUpdate{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordReadingAccepted(ctx, string(meter.Type))
	}

	logger.FromContext(ctx).Named("meter.service").Info("reading accepted",
		zap.String("meter_id", meter.ID.String()),
		zap.Int64("reading", req.Reading),
	)

	return update, nil
}

func (s *Service) History(ctx context.Context, actor persondomain.Person, meterID snowflake.ID) ([]*domain.ReadingUpdate, error) {
	meter, err := s.authorizedMeter(ctx, actor, meterID)
	if err != nil {
		return nil, err
	}

	return s.readings.Find(ctx, &domain.ReadingUpdate{MeterID: meter.ID},
		option.WithSortBy(option.WithQuerySortBy("recorded_at", "asc", map[string]bool{"recorded_at": true})),
	)
}

// authorizedMeter loads a meter and verifies the actor is either the
// tenant of the flat or the landlord of the building.
func (s *Service) authorizedMeter(ctx context.Context, actor persondomain.Person, meterID snowflake.ID) (*domain.Meter, error) {
	meter, err := s.meters.FindOne(ctx, &domain.Meter{ID: meterID})
	if err != nil {
		return nil, err
	}
	if meter == nil {
		return nil, domain.ErrMeterNotFound
	}

	flat, err := s.flats.FindOne(ctx, &flatdomain.Flat{ID: meter.FlatID})
	if err != nil {
		return nil, err
	}
	if flat == nil {
		return nil, domain.ErrMeterNotFound
	}

	if flat.TenantID != nil && *flat.TenantID == actor.ID {
		return meter, nil
	}

	building, err := s.buildings.FindOne(ctx, &buildingdomain.Building{ID: flat.BuildingID})
	if err != nil {
		return nil, err
	}
	if building != nil && building.LandlordID == actor.ID {
		return meter, nil
	}

	return nil, authorization.ErrForbidden
}
