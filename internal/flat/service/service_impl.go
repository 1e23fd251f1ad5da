package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mietwerk/mietwerk/internal/authorization"
	buildingdomain "github.com/mietwerk/mietwerk/internal/building/domain"
	"github.com/mietwerk/mietwerk/internal/flat/domain"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	"github.com/mietwerk/mietwerk/internal/observability/logger"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	"github.com/mietwerk/mietwerk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	PersonSvc persondomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	personsvc persondomain.Service
	flats     repository.Repository[domain.Flat]
	meters    repository.Repository[meterdomain.Meter]
	buildings repository.Repository[buildingdomain.Building]
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("flat.service"),
		personsvc: p.PersonSvc,
		flats:     repository.ProvideStore[domain.Flat](p.DB),
		meters:    repository.ProvideStore[meterdomain.Meter](p.DB),
		buildings: repository.ProvideStore[buildingdomain.Building](p.DB),
	}
}

func (s *Service) AssignTenant(ctx context.Context, actor persondomain.Person, req domain.AssignTenantRequest) (domain.Flat, error) {
	building, err := s.buildings.FindOne(ctx, &buildingdomain.Building{ID: req.BuildingID})
	if err != nil {
		return domain.Flat{}, err
	}
	if building == nil {
		return domain.Flat{}, buildingdomain.ErrBuildingNotFound
	}
	if building.LandlordID != actor.ID {
		return domain.Flat{}, authorization.ErrForbidden
	}

	flat, err := s.flats.FindOne(ctx, &domain.Flat{ID: req.FlatID})
	if err != nil {
		return domain.Flat{}, err
	}
	if flat == nil {
		return domain.Flat{}, domain.ErrFlatNotFound
	}
	if flat.BuildingID != building.ID {
		return domain.Flat{}, domain.ErrFlatNotInBuilding
	}

	var tenant persondomain.Person
	switch {
	case strings.TrimSpace(req.TenantEmail) != "":
		tenant, err = s.personsvc.FindByEmail(ctx, req.TenantEmail)
		if err != nil {
			return domain.Flat{}, err
		}
	case strings.TrimSpace(req.TenantFirstName) != "" && strings.TrimSpace(req.TenantLastName) != "":
		// Tenants without an account are kept as contact-only persons.
		tenant, err = s.personsvc.RegisterContact(ctx, req.TenantFirstName, req.TenantLastName)
		if err != nil {
			return domain.Flat{}, err
		}
	default:
		return domain.Flat{}, domain.ErrNoTenantGiven
	}

	residents := flat.Residents
	if req.Residents != nil {
		residents = *req.Residents
	}
	if residents < 0 {
		return domain.Flat{}, domain.ErrInvalidResidents
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Flat{}).Where("id = ?", flat.ID).Updates(map[string]any{
			"tenant_id":  tenant.ID,
			"residents":  residents,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			return err
		}

		// The tenant capability follows the tenancy, not registration.
		if !tenant.HasCapability(persondomain.CapabilityTenant) {
			return s.personsvc.GrantCapability(ctx, tenant.ID, persondomain.CapabilityTenant)
		}
		return nil
	})
	if err != nil {
		return domain.Flat{}, err
	}

	logger.FromContext(ctx).Named("flat.service").Info("tenant assigned",
		zap.String("flat_id", flat.ID.String()),
		zap.String("tenant_id", tenant.ID.String()),
	)

	updated, err := s.flats.FindOne(ctx, &domain.Flat{ID: flat.ID})
	if err != nil {
		return domain.Flat{}, err
	}
	if updated == nil {
		return domain.Flat{}, domain.ErrFlatNotFound
	}
	return *updated, nil
}

func (s *Service) ListForTenant(ctx context.Context, actor persondomain.Person) ([]domain.FlatView, error) {
	tenantID := actor.ID
	flats, err := s.flats.Find(ctx, &domain.Flat{TenantID: &tenantID})
	if err != nil {
		return nil, err
	}

	views := make([]domain.FlatView, 0, len(flats))
	for _, flat := range flats {
		meters, err := s.meters.Find(ctx, &meterdomain.Meter{FlatID: flat.ID})
		if err != nil {
			return nil, err
		}
		views = append(views, domain.FlatView{Flat: *flat, Meters: meters})
	}

	return views, nil
}

func (s *Service) Landlord(ctx context.Context, actor persondomain.Person, flatID snowflake.ID) (persondomain.Person, error) {
	flat, err := s.flats.FindOne(ctx, &domain.Flat{ID: flatID})
	if err != nil {
		return persondomain.Person{}, err
	}
	if flat == nil {
		return persondomain.Person{}, domain.ErrFlatNotFound
	}
	if flat.TenantID == nil || *flat.TenantID != actor.ID {
		return persondomain.Person{}, authorization.ErrForbidden
	}

	building, err := s.buildings.FindOne(ctx, &buildingdomain.Building{ID: flat.BuildingID})
	if err != nil {
		return persondomain.Person{}, err
	}
	if building == nil {
		return persondomain.Person{}, buildingdomain.ErrBuildingNotFound
	}

	landlord, err := s.personsvc.Get(ctx, building.LandlordID)
	if err != nil {
		if errors.Is(err, persondomain.ErrPersonNotFound) {
			return persondomain.Person{}, buildingdomain.ErrBuildingNotFound
		}
		return persondomain.Person{}, err
	}

	return landlord, nil
}
