package domain

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/bwmarrin/snowflake"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
)

type CreateInvoiceRequest struct {
	FlatID snowflake.ID
	// TotalRentPaid is the warm rent the tenant actually paid over the
	// year, supplied by the landlord rather than derived from payments.
	TotalRentPaid float64
}

// Summary is the outward representation of an invoice: the PDF travels
// base64-encoded and the per-meter/per-cost breakdown maps stay internal.
type Summary struct {
	ID         snowflake.ID `json:"id"`
	FlatID     snowflake.ID `json:"flat_id"`
	BuildingID snowflake.ID `json:"building_id"`
	ForYear    int          `json:"for_year"`
	Paid       bool         `json:"paid"`
	TotalCost  float64      `json:"total_cost"`
	PDF        string       `json:"pdf"`
}

func (i Invoice) Summarize() Summary {
	return Summary{
		ID:         i.ID,
		FlatID:     i.FlatID,
		BuildingID: i.BuildingID,
		ForYear:    i.ForYear,
		Paid:       i.Paid,
		TotalCost:  i.TotalCost,
		PDF:        base64.StdEncoding.EncodeToString(i.PDF),
	}
}

type Service interface {
	// Create computes the yearly statement for a flat and renders its
	// PDF, all inside one transaction.
	Create(ctx context.Context, actor persondomain.Person, req CreateInvoiceRequest) (Invoice, error)
	// ListForLandlord returns the newest invoice per flat across the
	// actor's buildings.
	ListForLandlord(ctx context.Context, actor persondomain.Person) ([]Summary, error)
	ListForTenant(ctx context.Context, actor persondomain.Person) ([]Summary, error)
	Get(ctx context.Context, actor persondomain.Person, id snowflake.ID) (Invoice, error)
	TogglePaid(ctx context.Context, actor persondomain.Person, id snowflake.ID) (Invoice, error)
}

var (
	ErrInvoiceNotFound = errors.New("invoice_not_found")
	ErrNoTenant        = errors.New("flat_has_no_tenant")
)
