package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/mietwerk/mietwerk/internal/audit/domain"
	"github.com/mietwerk/mietwerk/internal/authorization"
	buildingdomain "github.com/mietwerk/mietwerk/internal/building/domain"
	"github.com/mietwerk/mietwerk/internal/clock"
	"github.com/mietwerk/mietwerk/internal/config"
	costdomain "github.com/mietwerk/mietwerk/internal/cost/domain"
	flatdomain "github.com/mietwerk/mietwerk/internal/flat/domain"
	"github.com/mietwerk/mietwerk/internal/invoice/calc"
	"github.com/mietwerk/mietwerk/internal/invoice/domain"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	"github.com/mietwerk/mietwerk/internal/observability/logger"
	obsmetrics "github.com/mietwerk/mietwerk/internal/observability/metrics"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	"github.com/mietwerk/mietwerk/internal/providers/pdf"
	"github.com/mietwerk/mietwerk/pkg/db/option"
	"github.com/mietwerk/mietwerk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Renderer  pdf.Renderer
	Billing   *config.BillingConfigHolder
	PersonSvc persondomain.Service
	AuditSvc  auditdomain.Service
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	renderer  pdf.Renderer
	billing   *config.BillingConfigHolder
	personsvc persondomain.Service
	auditsvc  auditdomain.Service
	metrics   *obsmetrics.Metrics
	invoices  repository.Repository[domain.Invoice]
	flats     repository.Repository[flatdomain.Flat]
	buildings repository.Repository[buildingdomain.Building]
	meters    repository.Repository[meterdomain.Meter]
	readings  repository.Repository[meterdomain.ReadingUpdate]
	costs     repository.Repository[costdomain.AdditionalCost]
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		renderer:  p.Renderer,
		billing:   p.Billing,
		personsvc: p.PersonSvc,
		auditsvc:  p.AuditSvc,
		metrics:   p.Metrics,
		invoices:  repository.ProvideStore[domain.Invoice](p.DB),
		flats:     repository.ProvideStore[flatdomain.Flat](p.DB),
		buildings: repository.ProvideStore[buildingdomain.Building](p.DB),
		meters:    repository.ProvideStore[meterdomain.Meter](p.DB),
		readings:  repository.ProvideStore[meterdomain.ReadingUpdate](p.DB),
		costs:     repository.ProvideStore[costdomain.AdditionalCost](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, actor persondomain.Person, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	log := logger.FromContext(ctx).Named("invoice.service")

	var invoice domain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flat, err := s.flats.WithTrx(tx).FindOne(ctx, &flatdomain.Flat{ID: req.FlatID})
		if err != nil {
			return err
		}
		if flat == nil {
			return flatdomain.ErrFlatNotFound
		}
		if flat.TenantID == nil {
			return domain.ErrNoTenant
		}

		building, err := s.buildings.WithTrx(tx).FindOne(ctx, &buildingdomain.Building{ID: flat.BuildingID})
		if err != nil {
			return err
		}
		if building == nil {
			return buildingdomain.ErrBuildingNotFound
		}
		if building.LandlordID != actor.ID {
			return authorization.ErrForbidden
		}

		siblings, err := s.flats.WithTrx(tx).Find(ctx, &flatdomain.Flat{BuildingID: building.ID})
		if err != nil {
			return err
		}
		totals := calc.BuildingTotals{Flats: len(siblings)}
		for _, sibling := range siblings {
			totals.SquareMeters += sibling.SquareMeters
			totals.Residents += sibling.Residents
		}
		figures := calc.FlatFigures{SquareMeters: flat.SquareMeters, Residents: flat.Residents}

		now := s.clock.Now()
		window := calc.WindowEnding(now)
		forYear := now.Year() - 1

		meters, err := s.meters.WithTrx(tx).Find(ctx, &meterdomain.Meter{FlatID: flat.ID})
		if err != nil {
			return err
		}

		meterDiff := map[string]int64{}
		meterCost := map[string]float64{}
		meterLines := make([]pdf.MeterLine, 0, len(meters))
		var metersTotal float64
		for _, meter := range meters {
			history, err := s.readings.WithTrx(tx).Find(ctx, &meterdomain.ReadingUpdate{MeterID: meter.ID},
				option.WithSortBy(option.WithQuerySortBy("recorded_at", "asc", map[string]bool{"recorded_at": true})),
			)
			if err != nil {
				return err
			}

			delta, ok := calc.Consumption(history, window)
			if !ok {
				// No readings in the billing window: the meter carries no
				// charge and is left off the statement entirely.
				log.Warn("meter has no readings in billing window",
					zap.String("meter_id", meter.ID.String()),
				)
				continue
			}

			cost := calc.MeterCost(*meter, delta)
			meterDiff[meter.ID.String()] = delta
			meterCost[meter.ID.String()] = cost
			metersTotal += cost
			meterLines = append(meterLines, pdf.MeterLine{
				Number: meter.Number,
				Type:   string(meter.Type),
				Delta:  delta,
				Cost:   cost,
			})
		}

		buildingID := building.ID
		allCosts, err := s.costs.WithTrx(tx).Find(ctx, &costdomain.AdditionalCost{BuildingID: &buildingID})
		if err != nil {
			return err
		}

		operatingShare := map[string]float64{}
		operatingLines := []pdf.CostLine{}
		flatLines := []pdf.CostLine{}
		var operatingTotal, flatCostTotal float64
		for _, cost := range allCosts {
			if cost.FlatID != nil && *cost.FlatID != flat.ID {
				continue
			}

			if cost.FlatID != nil {
				// Costs attached to the flat itself are never divided, the
				// flat carries the full yearly amount.
				share := cost.Amount * cost.Frequency.Factor()
				flatCostTotal += share
				flatLines = append(flatLines, pdf.CostLine{Name: cost.Name, Detail: cost.Description, Amount: share})
				continue
			}

			share, ok, err := calc.YearlyShare(*cost, totals, figures)
			if err != nil {
				return fmt.Errorf("apportion cost %s: %w", cost.ID, err)
			}
			if !ok {
				// Costs without a distribution cannot be split; they are
				// left off the statement.
				log.Warn("cost has no distribution, skipping",
					zap.String("cost_id", cost.ID.String()),
					zap.String("name", cost.Name),
				)
				continue
			}

			operatingShare[cost.ID.String()] = share
			operatingTotal += share
			operatingLines = append(operatingLines, pdf.CostLine{
				Name:   cost.Name,
				Detail: distributionLabel(cost.Distribution),
				Amount: share,
			})
		}

		totalColdRent := flat.ColdRent * 12
		totalWarmRentPaid := req.TotalRentPaid
		totalCost := metersTotal + operatingTotal + totalColdRent
		if calc.IncludeFlatCostsInTotal {
			totalCost += flatCostTotal
		}

		tenant, err := s.personsvc.Get(ctx, *flat.TenantID)
		if err != nil {
			return err
		}

		billing := s.billing.Current()
		document := pdf.Document{
			IssuerName:        billing.IssuerName,
			FooterNote:        billing.FooterNote,
			CurrencySymbol:    billing.CurrencySymbol,
			PaymentNote:       billing.PaymentNote,
			DueInDays:         billing.DueInDays,
			LandlordName:      actor.FirstName + " " + actor.LastName,
			TenantName:        tenant.FirstName + " " + tenant.LastName,
			Address:           formatAddress(*building),
			FlatLocation:      flat.Location,
			ForYear:           forYear,
			PeriodStart:       window.Start.Format("2006-01-02"),
			PeriodEnd:         window.End.Format("2006-01-02"),
			Meters:            meterLines,
			Operating:         operatingLines,
			FlatCosts:         flatLines,
			TotalColdRent:     totalColdRent,
			TotalWarmRentPaid: totalWarmRentPaid,
			TotalCost:         totalCost,
			Balance:           totalCost - totalWarmRentPaid,
		}

		rendered, err := s.renderer.Render(ctx, document)
		if err != nil {
			return fmt.Errorf("render statement: %w", err)
		}

		invoice = domain.Invoice{
			ID:                 s.genID.Generate(),
			FlatID:             flat.ID,
			BuildingID:         building.ID,
			TenantID:           *flat.TenantID,
			ForYear:            forYear,
			MeterDifference:    datatypes.NewJSONType(meterDiff),
			MeterTotalCost:     datatypes.NewJSONType(meterCost),
			OperatingCostShare: datatypes.NewJSONType(operatingShare),
			TotalColdRent:      totalColdRent,
			TotalWarmRentPaid:  totalWarmRentPaid,
			TotalSquareMeters:  totals.SquareMeters,
			TotalCost:          totalCost,
			PDF:                rendered,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		return s.invoices.WithTrx(tx).Create(ctx, &invoice)
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordInvoiceCreated(ctx)
	}
	log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("flat_id", invoice.FlatID.String()),
		zap.Int("for_year", invoice.ForYear),
		zap.Float64("total_cost", invoice.TotalCost),
	)
	actorID := actor.ID
	_ = s.auditsvc.Record(ctx, &actorID, "invoice.create", "invoice", invoice.ID.String(), map[string]any{
		"flat_id":  invoice.FlatID.String(),
		"for_year": invoice.ForYear,
	})

	return invoice, nil
}

func (s *Service) ListForLandlord(ctx context.Context, actor persondomain.Person) ([]domain.Summary, error) {
	if err := authorization.RequireLandlord(actor); err != nil {
		return nil, err
	}

	buildings, err := s.buildings.Find(ctx, &buildingdomain.Building{LandlordID: actor.ID})
	if err != nil {
		return nil, err
	}

	summaries := []domain.Summary{}
	for _, building := range buildings {
		invoices, err := s.invoices.Find(ctx, &domain.Invoice{BuildingID: building.ID},
			option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
		)
		if err != nil {
			return nil, err
		}

		// Newest wins per flat: the list is ordered created_at desc.
		seen := map[snowflake.ID]bool{}
		for _, invoice := range invoices {
			if seen[invoice.FlatID] {
				continue
			}
			seen[invoice.FlatID] = true
			summaries = append(summaries, invoice.Summarize())
		}
	}

	return summaries, nil
}

func (s *Service) ListForTenant(ctx context.Context, actor persondomain.Person) ([]domain.Summary, error) {
	invoices, err := s.invoices.Find(ctx, &domain.Invoice{TenantID: actor.ID},
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
	)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.Summary, 0, len(invoices))
	for _, invoice := range invoices {
		summaries = append(summaries, invoice.Summarize())
	}
	return summaries, nil
}

func (s *Service) Get(ctx context.Context, actor persondomain.Person, id snowflake.ID) (domain.Invoice, error) {
	invoice, err := s.invoices.FindOne(ctx, &domain.Invoice{ID: id})
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}

	if invoice.TenantID == actor.ID {
		return *invoice, nil
	}

	building, err := s.buildings.FindOne(ctx, &buildingdomain.Building{ID: invoice.BuildingID})
	if err != nil {
		return domain.Invoice{}, err
	}
	if building == nil || building.LandlordID != actor.ID {
		return domain.Invoice{}, authorization.ErrForbidden
	}

	return *invoice, nil
}

func (s *Service) TogglePaid(ctx context.Context, actor persondomain.Person, id snowflake.ID) (domain.Invoice, error) {
	invoice, err := s.invoices.FindOne(ctx, &domain.Invoice{ID: id})
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}

	building, err := s.buildings.FindOne(ctx, &buildingdomain.Building{ID: invoice.BuildingID})
	if err != nil {
		return domain.Invoice{}, err
	}
	if building == nil || building.LandlordID != actor.ID {
		return domain.Invoice{}, authorization.ErrForbidden
	}

	if err := s.invoices.Update(ctx, invoice.ID.String(), map[string]any{
		"paid":       !invoice.Paid,
		"updated_at": s.clock.Now(),
	}); err != nil {
		return domain.Invoice{}, err
	}

	invoice.Paid = !invoice.Paid

	actorID := actor.ID
	_ = s.auditsvc.Record(ctx, &actorID, "invoice.toggle_paid", "invoice", invoice.ID.String(), map[string]any{
		"paid": invoice.Paid,
	})

	return *invoice, nil
}

func distributionLabel(d *costdomain.Distribution) string {
	if d == nil {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(string(*d), "_", " "))
}

func formatAddress(b buildingdomain.Building) string {
	parts := []string{b.Street, b.Zip + " " + b.City}
	if b.State != "" {
		parts = append(parts, b.State)
	}
	parts = append(parts, b.Country)
	return strings.Join(parts, ", ")
}
