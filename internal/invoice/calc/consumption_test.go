package calc

import (
	"testing"
	"time"

	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	"github.com/stretchr/testify/assert"
)

func update(reading int64, at time.Time) *meterdomain.ReadingUpdate {
	return &meterdomain.ReadingUpdate{Reading: reading, RecordedAt: at}
}

func TestWindowEnding(t *testing.T) {
	end := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	w := WindowEnding(end)

	assert.Equal(t, time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, end, w.End)
}

func TestWindowContainsInclusiveBounds(t *testing.T) {
	end := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	w := WindowEnding(end)

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Second)))
	assert.False(t, w.Contains(w.End.Add(time.Second)))
}

func TestConsumptionDeltaByTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	w := WindowEnding(now)

	// Insertion order deliberately shuffled: the delta must follow the
	// timestamps, not the slice order.
	history := []*meterdomain.ReadingUpdate{
		update(2000, now.AddDate(0, -1, 0)),
		update(1000, now.AddDate(0, -11, 0)),
		update(1500, now.AddDate(0, -6, 0)),
	}

	delta, ok := Consumption(history, w)
	assert.True(t, ok)
	assert.Equal(t, int64(1000), delta)
}

func TestConsumptionIgnoresReadingsOutsideWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	w := WindowEnding(now)

	history := []*meterdomain.ReadingUpdate{
		update(100, now.AddDate(0, -13, 0)),
		update(1200, now.AddDate(0, -10, 0)),
		update(1400, now.AddDate(0, -2, 0)),
	}

	delta, ok := Consumption(history, w)
	assert.True(t, ok)
	assert.Equal(t, int64(200), delta)
}

func TestConsumptionSingleReadingYieldsZeroDelta(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	w := WindowEnding(now)

	history := []*meterdomain.ReadingUpdate{
		update(1000, now.AddDate(0, -13, 0)),
		update(2000, now.AddDate(0, -1, 0)),
	}

	delta, ok := Consumption(history, w)
	assert.True(t, ok)
	assert.Equal(t, int64(0), delta)
}

func TestConsumptionNoReadingsInWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	w := WindowEnding(now)

	history := []*meterdomain.ReadingUpdate{
		update(1000, now.AddDate(0, -15, 0)),
		update(1100, now.AddDate(0, -13, 0)),
	}

	_, ok := Consumption(history, w)
	assert.False(t, ok)

	_, ok = Consumption(nil, w)
	assert.False(t, ok)
}

func TestConsumptionNegativeDeltaPropagates(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	w := WindowEnding(now)

	history := []*meterdomain.ReadingUpdate{
		update(500, now.AddDate(0, -11, 0)),
		update(300, now.AddDate(0, -1, 0)),
	}

	delta, ok := Consumption(history, w)
	assert.True(t, ok)
	assert.Equal(t, int64(-200), delta)
}

func TestMeterCost(t *testing.T) {
	gas := meterdomain.Meter{Type: meterdomain.MeterGas, BaseCost: 12.50, CostPerUnit: 0.48}
	assert.InDelta(t, 492.50, MeterCost(gas, 1000), 1e-9)

	hotWater := meterdomain.Meter{Type: meterdomain.MeterHotWater, BaseCost: 12.50, CostPerUnit: 0.48}
	assert.InDelta(t, 27924.50, MeterCost(hotWater, 1000), 1e-9)

	electricity := meterdomain.Meter{Type: meterdomain.MeterElectricity, BaseCost: 80, CostPerUnit: 0.30}
	assert.InDelta(t, 80.0, MeterCost(electricity, 0), 1e-9)
	assert.InDelta(t, 50.0, MeterCost(electricity, -100), 1e-9)
}
