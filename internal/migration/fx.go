package migration

import (
	auditdomain "github.com/mietwerk/mietwerk/internal/audit/domain"
	authdomain "github.com/mietwerk/mietwerk/internal/auth/domain"
	buildingdomain "github.com/mietwerk/mietwerk/internal/building/domain"
	"github.com/mietwerk/mietwerk/internal/config"
	costdomain "github.com/mietwerk/mietwerk/internal/cost/domain"
	flatdomain "github.com/mietwerk/mietwerk/internal/flat/domain"
	invoicedomain "github.com/mietwerk/mietwerk/internal/invoice/domain"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	"github.com/mietwerk/mietwerk/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres deployments (sqlite for local runs) get the
			// schema from the models directly.
			if err := conn.AutoMigrate(
				&persondomain.Person{},
				&authdomain.Session{},
				&buildingdomain.Building{},
				&flatdomain.Flat{},
				&meterdomain.Meter{},
				&meterdomain.ReadingUpdate{},
				&costdomain.AdditionalCost{},
				&invoicedomain.Invoice{},
				&auditdomain.Entry{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData {
			return seed.EnsureDemoData(conn)
		}
		return nil
	}),
)
