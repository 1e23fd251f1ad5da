package calc

import (
	"errors"

	costdomain "github.com/mietwerk/mietwerk/internal/cost/domain"
)

// ErrZeroDenominator is returned when an apportionment strategy would
// divide by zero, e.g. BY_PERSON in a building with no residents.
var ErrZeroDenominator = errors.New("zero_denominator")

// IncludeFlatCostsInTotal controls whether costs attached directly to a
// flat are folded into the invoice total. They are currently listed on
// the invoice but excluded from the total.
const IncludeFlatCostsInTotal = false

// BuildingTotals are the denominators shared costs are split by.
type BuildingTotals struct {
	Flats        int
	SquareMeters int
	Residents    int
}

// FlatFigures are the numerators of the flat being invoiced.
type FlatFigures struct {
	SquareMeters int
	Residents    int
}

// Apportion splits one recurrence of a cost amount onto a flat. It
// reports ok=false when the cost carries no distribution and is skipped.
func Apportion(amount float64, distribution *costdomain.Distribution, totals BuildingTotals, flat FlatFigures) (float64, bool, error) {
	if distribution == nil {
		return 0, false, nil
	}

	switch *distribution {
	case costdomain.DistributionByFlat:
		if totals.Flats == 0 {
			return 0, false, ErrZeroDenominator
		}
		return amount / float64(totals.Flats), true, nil
	case costdomain.DistributionBySquareMeters:
		if totals.SquareMeters == 0 {
			return 0, false, ErrZeroDenominator
		}
		return amount * float64(flat.SquareMeters) / float64(totals.SquareMeters), true, nil
	case costdomain.DistributionByPerson:
		if totals.Residents == 0 {
			return 0, false, ErrZeroDenominator
		}
		return amount * float64(flat.Residents) / float64(totals.Residents), true, nil
	case costdomain.DistributionNone:
		return amount, true, nil
	default:
		return 0, false, nil
	}
}

// YearlyShare apportions a cost and scales it to a full year by its
// recurrence frequency.
func YearlyShare(cost costdomain.AdditionalCost, totals BuildingTotals, flat FlatFigures) (float64, bool, error) {
	share, ok, err := Apportion(cost.Amount, cost.Distribution, totals, flat)
	if err != nil || !ok {
		return 0, ok, err
	}
	return share * cost.Frequency.Factor(), true, nil
}
