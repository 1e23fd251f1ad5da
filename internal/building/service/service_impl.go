package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/mietwerk/mietwerk/internal/audit/domain"
	"github.com/mietwerk/mietwerk/internal/authorization"
	"github.com/mietwerk/mietwerk/internal/building/domain"
	"github.com/mietwerk/mietwerk/internal/clock"
	costdomain "github.com/mietwerk/mietwerk/internal/cost/domain"
	flatdomain "github.com/mietwerk/mietwerk/internal/flat/domain"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	"github.com/mietwerk/mietwerk/internal/observability/logger"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	"github.com/mietwerk/mietwerk/pkg/db"
	"github.com/mietwerk/mietwerk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	PersonSvc persondomain.Service
	AuditSvc  auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	personsvc persondomain.Service
	auditsvc  auditdomain.Service
	buildings repository.Repository[domain.Building]
	flats     repository.Repository[flatdomain.Flat]
	meters    repository.Repository[meterdomain.Meter]
	readings  repository.Repository[meterdomain.ReadingUpdate]
	costs     repository.Repository[costdomain.AdditionalCost]
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("building.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		personsvc: p.PersonSvc,
		auditsvc:  p.AuditSvc,
		buildings: repository.ProvideStore[domain.Building](p.DB),
		flats:     repository.ProvideStore[flatdomain.Flat](p.DB),
		meters:    repository.ProvideStore[meterdomain.Meter](p.DB),
		readings:  repository.ProvideStore[meterdomain.ReadingUpdate](p.DB),
		costs:     repository.ProvideStore[costdomain.AdditionalCost](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, actor persondomain.Person, req domain.CreateBuildingRequest) (domain.BuildingView, error) {
	building := domain.Building{
		ID:         s.genID.Generate(),
		LandlordID: actor.ID,
		Street:     normalizeAddressField(req.Street),
		City:       normalizeAddressField(req.City),
		State:      normalizeAddressField(req.State),
		Zip:        normalizeAddressField(req.Zip),
		Country:    normalizeAddressField(req.Country),
	}
	if building.Street == "" || building.City == "" || building.Zip == "" || building.Country == "" {
		return domain.BuildingView{}, domain.ErrInvalidAddress
	}

	now := s.clock.Now()
	building.CreatedAt = now
	building.UpdatedAt = now

	existing, err := s.findByAddress(ctx, building)
	if err != nil {
		return domain.BuildingView{}, err
	}
	if existing != nil {
		return domain.BuildingView{}, domain.ErrBuildingExists
	}

	buildingCosts, err := s.validateCosts(building.ID, nil, req.Costs, now)
	if err != nil {
		return domain.BuildingView{}, err
	}

	batch, err := s.buildFlats(ctx, building.ID, req.Flats, now)
	if err != nil {
		return domain.BuildingView{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.buildings.WithTrx(tx).Create(ctx, &building); err != nil {
			return err
		}
		if err := s.costs.WithTrx(tx).BatchCreate(ctx, buildingCosts); err != nil {
			return err
		}
		return s.persistFlats(ctx, tx, batch)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.BuildingView{}, domain.ErrBuildingExists
		}
		return domain.BuildingView{}, err
	}

	// Owning a building is what makes someone a landlord.
	if !actor.HasCapability(persondomain.CapabilityLandlord) {
		if err := s.personsvc.GrantCapability(ctx, actor.ID, persondomain.CapabilityLandlord); err != nil {
			return domain.BuildingView{}, err
		}
	}

	logger.FromContext(ctx).Named("building.service").Info("building created",
		zap.String("building_id", building.ID.String()),
		zap.Int("flats", len(batch.flats)),
		zap.Int("meters", len(batch.meters)),
	)
	actorID := actor.ID
	_ = s.auditsvc.Record(ctx, &actorID, "building.create", "building", building.ID.String(), map[string]any{
		"flats":  len(batch.flats),
		"meters": len(batch.meters),
	})

	return s.view(ctx, building)
}

func (s *Service) List(ctx context.Context, actor persondomain.Person) ([]domain.BuildingView, error) {
	if err := authorization.RequireLandlord(actor); err != nil {
		return nil, err
	}

	buildings, err := s.buildings.Find(ctx, &domain.Building{LandlordID: actor.ID})
	if err != nil {
		return nil, err
	}

	views := make([]domain.BuildingView, 0, len(buildings))
	for _, building := range buildings {
		view, err := s.view(ctx, *building)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) Get(ctx context.Context, actor persondomain.Person, id snowflake.ID) (domain.BuildingView, error) {
	building, err := s.owned(ctx, actor, id)
	if err != nil {
		return domain.BuildingView{}, err
	}
	return s.view(ctx, *building)
}

func (s *Service) Modify(ctx context.Context, actor persondomain.Person, id snowflake.ID, req domain.ModifyBuildingRequest) (domain.Building, error) {
	building, err := s.owned(ctx, actor, id)
	if err != nil {
		return domain.Building{}, err
	}

	next := *building
	if req.Street != nil {
		next.Street = normalizeAddressField(*req.Street)
	}
	if req.City != nil {
		next.City = normalizeAddressField(*req.City)
	}
	if req.State != nil {
		next.State = normalizeAddressField(*req.State)
	}
	if req.Zip != nil {
		next.Zip = normalizeAddressField(*req.Zip)
	}
	if req.Country != nil {
		next.Country = normalizeAddressField(*req.Country)
	}
	if next.Street == "" || next.City == "" || next.Zip == "" || next.Country == "" {
		return domain.Building{}, domain.ErrInvalidAddress
	}

	duplicate, err := s.findByAddress(ctx, next)
	if err != nil {
		return domain.Building{}, err
	}
	if duplicate != nil && duplicate.ID != building.ID {
		return domain.Building{}, domain.ErrBuildingExists
	}

	now := s.clock.Now()
	newCosts, err := s.validateCosts(building.ID, nil, req.Costs, now)
	if err != nil {
		return domain.Building{}, err
	}
	batch, err := s.buildFlats(ctx, building.ID, req.Flats, now)
	if err != nil {
		return domain.Building{}, err
	}

	fields := map[string]any{
		"street":     next.Street,
		"city":       next.City,
		"state":      next.State,
		"zip":        next.Zip,
		"country":    next.Country,
		"updated_at": now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.buildings.WithTrx(tx).Update(ctx, building.ID.String(), fields); err != nil {
			return err
		}
		if err := s.costs.WithTrx(tx).BatchCreate(ctx, newCosts); err != nil {
			return err
		}
		return s.persistFlats(ctx, tx, batch)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Building{}, domain.ErrBuildingExists
		}
		return domain.Building{}, err
	}

	actorID := actor.ID
	_ = s.auditsvc.Record(ctx, &actorID, "building.modify", "building", building.ID.String(), map[string]any{
		"flats_added": len(batch.flats),
		"costs_added": len(newCosts),
	})

	updated, err := s.buildings.FindOne(ctx, &domain.Building{ID: building.ID})
	if err != nil {
		return domain.Building{}, err
	}
	if updated == nil {
		return domain.Building{}, domain.ErrBuildingNotFound
	}
	return *updated, nil
}

func (s *Service) Delete(ctx context.Context, actor persondomain.Person, id snowflake.ID) error {
	building, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}

	// SQLite has no FK cascades configured, so dependents go explicitly,
	// leaves first.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM reading_updates WHERE meter_id IN (SELECT id FROM meters WHERE flat_id IN (SELECT id FROM flats WHERE building_id = ?))`, building.ID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM meters WHERE flat_id IN (SELECT id FROM flats WHERE building_id = ?)`, building.ID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM invoices WHERE building_id = ?`, building.ID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM additional_costs WHERE building_id = ?`, building.ID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM flats WHERE building_id = ?`, building.ID).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM buildings WHERE id = ?`, building.ID).Error
	})
	if err != nil {
		return err
	}

	actorID := actor.ID
	_ = s.auditsvc.Record(ctx, &actorID, "building.delete", "building", building.ID.String(), nil)
	return nil
}

// flatBatch holds validated rows for new flats plus everything hanging
// off them, ready for one transactional insert.
type flatBatch struct {
	flats    []*flatdomain.Flat
	meters   []*meterdomain.Meter
	readings []*meterdomain.ReadingUpdate
	costs    []*costdomain.AdditionalCost
}

func (s *Service) buildFlats(ctx context.Context, buildingID snowflake.ID, specs []domain.FlatSpec, now time.Time) (flatBatch, error) {
	var (
		batch        flatBatch
		meterNumbers = map[string]bool{}
	)
	for _, spec := range specs {
		location := strings.TrimSpace(spec.Location)
		if location == "" || spec.Rooms <= 0 || spec.SquareMeters <= 0 || spec.Residents < 0 || spec.ColdRent < 0 || spec.WarmRent < 0 {
			return flatBatch{}, domain.ErrInvalidFlat
		}

		flat := &flatdomain.Flat{
			ID:           s.genID.Generate(),
			BuildingID:   buildingID,
			Location:     location,
			Rooms:        spec.Rooms,
			SquareMeters: spec.SquareMeters,
			Residents:    spec.Residents,
			ColdRent:     spec.ColdRent,
			WarmRent:     spec.WarmRent,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		batch.flats = append(batch.flats, flat)

		for _, m := range spec.Meters {
			number := strings.TrimSpace(m.Number)
			if number == "" || !m.Type.Valid() || m.Reading < 0 || m.CostPerUnit < 0 || m.BaseCost < 0 {
				return flatBatch{}, domain.ErrInvalidMeter
			}
			if meterNumbers[number] {
				return flatBatch{}, domain.ErrMeterNumberTaken
			}
			meterNumbers[number] = true

			meter := &meterdomain.Meter{
				ID:          s.genID.Generate(),
				FlatID:      flat.ID,
				Number:      number,
				Type:        m.Type,
				Reading:     m.Reading,
				CostPerUnit: m.CostPerUnit,
				BaseCost:    m.BaseCost,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			batch.meters = append(batch.meters, meter)

			// Seed the history so the first tenant reading has a baseline.
			batch.readings = append(batch.readings, &meterdomain.ReadingUpdate{
				ID:         s.genID.Generate(),
				MeterID:    meter.ID,
				Reading:    m.Reading,
				RecordedAt: now,
			})
		}

		flatID := flat.ID
		perFlat, err := s.validateCosts(buildingID, &flatID, spec.Costs, now)
		if err != nil {
			return flatBatch{}, err
		}
		batch.costs = append(batch.costs, perFlat...)
	}

	if len(meterNumbers) > 0 {
		numbers := make([]string, 0, len(meterNumbers))
		for number := range meterNumbers {
			numbers = append(numbers, number)
		}
		var taken int64
		if err := s.db.WithContext(ctx).Model(&meterdomain.Meter{}).Where("number IN ?", numbers).Count(&taken).Error; err != nil {
			return flatBatch{}, err
		}
		if taken > 0 {
			return flatBatch{}, domain.ErrMeterNumberTaken
		}
	}
	return batch, nil
}

func (s *Service) persistFlats(ctx context.Context, tx *gorm.DB, batch flatBatch) error {
	if err := s.flats.WithTrx(tx).BatchCreate(ctx, batch.flats); err != nil {
		return err
	}
	if err := s.meters.WithTrx(tx).BatchCreate(ctx, batch.meters); err != nil {
		return err
	}
	if err := s.readings.WithTrx(tx).BatchCreate(ctx, batch.readings); err != nil {
		return err
	}
	return s.costs.WithTrx(tx).BatchCreate(ctx, batch.costs)
}

// findByAddress matches the five-column address unique index. A struct
// query would drop empty columns (state is optional), so the predicates
// are spelled out.
func (s *Service) findByAddress(ctx context.Context, b domain.Building) (*domain.Building, error) {
	var found domain.Building
	err := s.db.WithContext(ctx).
		Where("street = ? AND city = ? AND state = ? AND zip = ? AND country = ?",
			b.Street, b.City, b.State, b.Zip, b.Country).
		First(&found).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (s *Service) owned(ctx context.Context, actor persondomain.Person, id snowflake.ID) (*domain.Building, error) {
	building, err := s.buildings.FindOne(ctx, &domain.Building{ID: id})
	if err != nil {
		return nil, err
	}
	if building == nil {
		return nil, domain.ErrBuildingNotFound
	}
	if building.LandlordID != actor.ID {
		return nil, authorization.ErrForbidden
	}
	return building, nil
}

func (s *Service) view(ctx context.Context, building domain.Building) (domain.BuildingView, error) {
	flats, err := s.flats.Find(ctx, &flatdomain.Flat{BuildingID: building.ID})
	if err != nil {
		return domain.BuildingView{}, err
	}

	buildingID := building.ID
	allCosts, err := s.costs.Find(ctx, &costdomain.AdditionalCost{BuildingID: &buildingID})
	if err != nil {
		return domain.BuildingView{}, err
	}

	var buildingCosts []*costdomain.AdditionalCost
	costsByFlat := map[snowflake.ID][]*costdomain.AdditionalCost{}
	for _, c := range allCosts {
		if c.FlatID != nil {
			costsByFlat[*c.FlatID] = append(costsByFlat[*c.FlatID], c)
			continue
		}
		buildingCosts = append(buildingCosts, c)
	}

	details := make([]domain.FlatDetail, 0, len(flats))
	for _, flat := range flats {
		meters, err := s.meters.Find(ctx, &meterdomain.Meter{FlatID: flat.ID})
		if err != nil {
			return domain.BuildingView{}, err
		}

		detail := domain.FlatDetail{
			Flat:   *flat,
			Meters: meters,
			Costs:  costsByFlat[flat.ID],
		}
		if flat.TenantID != nil {
			tenant, err := s.personsvc.Get(ctx, *flat.TenantID)
			if err != nil && !errors.Is(err, persondomain.ErrPersonNotFound) {
				return domain.BuildingView{}, err
			}
			if err == nil {
				detail.Tenant = &tenant
			}
		}
		details = append(details, detail)
	}

	return domain.BuildingView{
		Building: building,
		Flats:    details,
		Costs:    buildingCosts,
	}, nil
}

func (s *Service) validateCosts(buildingID snowflake.ID, flatID *snowflake.ID, specs []domain.CostSpec, now time.Time) ([]*costdomain.AdditionalCost, error) {
	costs := make([]*costdomain.AdditionalCost, 0, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" || spec.Amount < 0 || !spec.Frequency.Valid() {
			return nil, domain.ErrInvalidCost
		}
		if spec.Distribution != nil && !spec.Distribution.Valid() {
			return nil, domain.ErrInvalidCost
		}

		bid := buildingID
		costs = append(costs, &costdomain.AdditionalCost{
			ID:           s.genID.Generate(),
			BuildingID:   &bid,
			FlatID:       flatID,
			Name:         name,
			Description:  strings.TrimSpace(spec.Description),
			Amount:       spec.Amount,
			Distribution: spec.Distribution,
			Frequency:    spec.Frequency,
			CreatedAt:    now,
		})
	}
	return costs, nil
}

func normalizeAddressField(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
