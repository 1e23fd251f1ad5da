package calc

import (
	"sort"
	"time"

	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
)

// HotWaterEnergyFactor converts cubic meters of hot water into the kWh
// that heating them costs. Hot water meters count volume while their
// tariff is priced per kWh.
const HotWaterEnergyFactor = 58.15

// Window is the billing period readings are evaluated against, inclusive
// on both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowEnding returns the twelve month billing window closing at end.
func WindowEnding(end time.Time) Window {
	return Window{Start: end.AddDate(0, -12, 0), End: end}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Consumption computes the counter delta over the window: the difference
// between the last and the first reading recorded inside it. A single
// in-window reading yields a delta of zero. It reports ok=false only when
// no reading falls into the window at all; such meters carry no charge.
func Consumption(history []*meterdomain.ReadingUpdate, w Window) (int64, bool) {
	var inWindow []*meterdomain.ReadingUpdate
	for _, r := range history {
		if r != nil && w.Contains(r.RecordedAt) {
			inWindow = append(inWindow, r)
		}
	}
	if len(inWindow) == 0 {
		return 0, false
	}

	sort.Slice(inWindow, func(i, j int) bool {
		return inWindow[i].RecordedAt.Before(inWindow[j].RecordedAt)
	})

	return inWindow[len(inWindow)-1].Reading - inWindow[0].Reading, true
}

// MeterCost prices a consumption delta: the yearly base cost plus the
// consumed units at the meter tariff. Hot water deltas are converted to
// kWh first.
func MeterCost(meter meterdomain.Meter, delta int64) float64 {
	units := float64(delta)
	if meter.Type == meterdomain.MeterHotWater {
		units *= HotWaterEnergyFactor
	}
	return meter.BaseCost + units*meter.CostPerUnit
}
