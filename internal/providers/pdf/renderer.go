package pdf

import "context"

// MeterLine is one utility meter row on the statement.
type MeterLine struct {
	Number string
	Type   string
	Delta  int64
	Cost   float64
}

// CostLine is one operating cost row, already apportioned to the flat
// and scaled to the year.
type CostLine struct {
	Name   string
	Detail string
	Amount float64
}

// Document carries everything the yearly statement PDF shows.
type Document struct {
	IssuerName     string
	FooterNote     string
	CurrencySymbol string
	PaymentNote    string
	DueInDays      int

	LandlordName string
	TenantName   string
	Address      string
	FlatLocation string

	ForYear     int
	PeriodStart string
	PeriodEnd   string

	Meters    []MeterLine
	Operating []CostLine
	FlatCosts []CostLine

	TotalColdRent     float64
	TotalWarmRentPaid float64
	TotalCost         float64
	Balance           float64
}

// Renderer produces the statement PDF bytes.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}
