package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Invoice is the yearly utility statement for one flat. The per-meter
// and per-cost breakdowns are stored as JSON keyed by meter/cost ID so
// the rendered PDF stays reproducible after tariffs change.
type Invoice struct {
	ID                 snowflake.ID                           `gorm:"primaryKey" json:"id"`
	FlatID             snowflake.ID                           `gorm:"not null;index" json:"flat_id"`
	BuildingID         snowflake.ID                           `gorm:"not null;index" json:"building_id"`
	TenantID           snowflake.ID                           `gorm:"not null;index" json:"tenant_id"`
	ForYear            int                                    `gorm:"not null" json:"for_year"`
	Paid               bool                                   `gorm:"not null;default:false" json:"paid"`
	MeterDifference    datatypes.JSONType[map[string]int64]   `json:"meter_difference"`
	MeterTotalCost     datatypes.JSONType[map[string]float64] `json:"meter_total_cost"`
	OperatingCostShare datatypes.JSONType[map[string]float64] `json:"operating_cost_share"`
	TotalColdRent      float64                                `gorm:"not null" json:"total_cold_rent"`
	TotalWarmRentPaid  float64                                `gorm:"not null" json:"total_warm_rent_paid"`
	TotalSquareMeters  int                                    `gorm:"not null" json:"total_square_meters"`
	TotalCost          float64                                `gorm:"not null" json:"total_cost"`
	PDF                []byte                                 `gorm:"type:blob" json:"-"`
	CreatedAt          time.Time                              `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time                              `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}
