package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type StatementRenderer struct{}

func NewStatementRenderer() Renderer {
	return &StatementRenderer{}
}

func (r *StatementRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(10,
		text.NewCol(12, fmt.Sprintf("Utility statement %d", doc.ForYear), props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Issued by: "+doc.IssuerName, props.Text{Top: 0}),
			text.New("Billing period: "+doc.PeriodStart+" to "+doc.PeriodEnd, props.Text{Top: 4}),
			text.New(fmt.Sprintf("Due within %d days", doc.DueInDays), props.Text{Top: 8}),
		),
		col.New(6),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("Landlord", props.Text{Style: fontstyle.Bold}),
			text.New(doc.LandlordName, props.Text{Top: 5}),
			text.New(doc.Address, props.Text{Top: 9}),
		),
		col.New(6).Add(
			text.New("Tenant", props.Text{Style: fontstyle.Bold}),
			text.New(doc.TenantName, props.Text{Top: 5}),
			text.New(doc.FlatLocation, props.Text{Top: 9}),
		),
	)

	m.AddRow(10,
		text.NewCol(4, "Meter", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Type", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Consumption", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Cost", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range doc.Meters {
		m.AddRow(8,
			text.NewCol(4, line.Number, props.Text{Size: 9}),
			text.NewCol(3, line.Type, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", line.Delta), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(3, r.money(doc, line.Cost), props.Text{Size: 9, Align: align.Right}),
		)
	}

	if len(doc.Operating) > 0 {
		m.AddRow(10,
			text.NewCol(9, "Operating costs", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(3, "Share", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		for _, line := range doc.Operating {
			m.AddRow(8,
				text.NewCol(6, line.Name, props.Text{Size: 9}),
				text.NewCol(3, line.Detail, props.Text{Size: 8}),
				text.NewCol(3, r.money(doc, line.Amount), props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	if len(doc.FlatCosts) > 0 {
		m.AddRow(10,
			text.NewCol(12, "Costs of this flat (informational)", props.Text{Style: fontstyle.Bold, Size: 9}),
		)
		for _, line := range doc.FlatCosts {
			m.AddRow(8,
				text.NewCol(9, line.Name, props.Text{Size: 9}),
				text.NewCol(3, r.money(doc, line.Amount), props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Cold rent", props.Text{Size: 9}),
		text.NewCol(3, r.money(doc, doc.TotalColdRent), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Total", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, r.money(doc, doc.TotalCost), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Warm rent paid", props.Text{Size: 9}),
		text.NewCol(3, r.money(doc, doc.TotalWarmRentPaid), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Balance", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, r.money(doc, doc.Balance), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if doc.PaymentNote != "" {
		m.AddRow(15,
			text.NewCol(12, doc.PaymentNote, props.Text{Size: 9, Top: 4}),
		)
	}
	if doc.FooterNote != "" {
		m.AddRow(10,
			text.NewCol(12, doc.FooterNote, props.Text{Size: 8, Top: 2}),
		)
	}

	rendered, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return rendered.GetBytes(), nil
}

func (r *StatementRenderer) money(doc Document, amount float64) string {
	return fmt.Sprintf("%.2f %s", amount, doc.CurrencySymbol)
}
