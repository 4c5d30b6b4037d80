package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

func TestFuelLevel(t *testing.T) {
	assert.InDelta(t, 96, FuelLevel(10, 80), 0.0001)
	// NaN throttle falls back to the neutral factor
	assert.InDelta(t, 97.5, FuelLevel(10, math.NaN()), 0.0001)
	assert.InDelta(t, 0, FuelLevel(300, 100), 0.0001)
}

func TestTyreLife(t *testing.T) {
	assert.InDelta(t, 98.2, TyreLife(10, 60), 0.0001)
	assert.InDelta(t, 97, TyreLife(10, math.NaN()), 0.0001)
	assert.InDelta(t, 0, TyreLife(400, 100), 0.0001)
}

func snapshotRace() []model.LapRecord {
	return []model.LapRecord{
		untimed("12", 1),
		timed("12", 2, 90),
		timed("12", 3, 92.5),
		timed("12", 4, 85),
		untimed("44", 1),
		timed("44", 2, 89),
		timed("44", 3, 91),
	}
}

func throughLap(records []model.LapRecord, lap int) []model.LapRecord {
	var out []model.LapRecord
	for _, rec := range records {
		if rec.Lap <= lap {
			out = append(out, rec)
		}
	}
	return out
}

//nolint:funlen // ok for test code
func TestSnapshot(t *testing.T) {
	all := snapshotRace()

	t.Run("vehicle with telemetry", func(t *testing.T) {
		filtered := vehicleRecords(throughLap(all, 3), "12")
		metrics := model.MetricSeries{
			model.MetricFuelUsage: {
				{Key: model.Key{VehicleID: "12", Lap: 2}, Value: 50},
				{Key: model.Key{VehicleID: "12", Lap: 3}, Value: 70},
			},
			model.MetricBrakeUsage: {
				{Key: model.Key{VehicleID: "12", Lap: 2}, Value: 80},
			},
		}
		snap := Snapshot(all, filtered, "12", 3, metrics)

		assert.Equal(t, "12", snap.VehicleID)
		assert.Equal(t, 3, snap.CurrentLap)
		assert.Equal(t, 2, snap.TotalCars)
		assert.Equal(t, 4, snap.TotalLaps)
		// own best 90 within the slice, race best 85 on lap 4
		assert.InDelta(t, 5, snap.GapToLeadS.GetOrZero(), 0.0001)
		// mean throttle 60, mean brake 80
		assert.InDelta(t, 99.1, snap.FuelL.GetOrZero(), 0.0001)
		assert.InDelta(t, 99.28, snap.TyreLifePct.GetOrZero(), 0.0001)
		assert.True(t, snap.PitLap.IsNull())
	})

	t.Run("field view", func(t *testing.T) {
		filtered := throughLap(all, 3)
		snap := Snapshot(all, filtered, "", 3, nil)

		assert.Empty(t, snap.VehicleID)
		// field bests 90 and 89: average 89.5 against leader 89
		assert.InDelta(t, 0.5, snap.GapToLeadS.GetOrZero(), 0.0001)
		// no telemetry: plain decay fallbacks
		assert.InDelta(t, 98.5, snap.FuelL.GetOrZero(), 0.0001)
		assert.InDelta(t, 99.1, snap.TyreLifePct.GetOrZero(), 0.0001)
	})

	t.Run("pit suggestion below half tyre life", func(t *testing.T) {
		all := []model.LapRecord{timed("12", 170, 90)}
		metrics := model.MetricSeries{
			model.MetricBrakeUsage: {
				{Key: model.Key{VehicleID: "12", Lap: 170}, Value: 100},
			},
		}
		snap := Snapshot(all, all, "12", 170, metrics)

		assert.InDelta(t, 49, snap.TyreLifePct.GetOrZero(), 0.0001)
		require.False(t, snap.PitLap.IsNull())
		assert.Equal(t, 333, snap.PitLap.GetOrZero())
	})

	t.Run("lap zero clamps to one", func(t *testing.T) {
		snap := Snapshot(all, all, "", 0, nil)
		assert.Equal(t, 1, snap.CurrentLap)
	})

	t.Run("empty slice yields the no-data state", func(t *testing.T) {
		snap := Snapshot(all, nil, "12", 3, nil)
		assert.Equal(t, 0, snap.CurrentLap)
		assert.True(t, snap.GapToLeadS.IsNull())
		assert.True(t, snap.FuelL.IsNull())
		assert.True(t, snap.TyreLifePct.IsNull())
		assert.True(t, snap.PitLap.IsNull())
	})

	t.Run("gap absent without usable times", func(t *testing.T) {
		bare := []model.LapRecord{untimed("12", 1), untimed("44", 1)}
		snap := Snapshot(bare, bare, "12", 1, nil)
		assert.True(t, snap.GapToLeadS.IsNull())
		assert.False(t, snap.FuelL.IsNull())
	})
}

func TestGapToLeader(t *testing.T) {
	records := []model.LapRecord{
		timed("12", 1, 92),
		timed("12", 2, 90),
		timed("44", 1, 91),
		timed("44", 2, 93),
	}

	t.Run("vehicle against the race best", func(t *testing.T) {
		got := GapToLeader(records, "12", 0)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].Lap)
		assert.InDelta(t, 2, got[0].Value, 0.0001)
		assert.InDelta(t, 0, got[1].Value, 0.0001)
	})

	t.Run("field average against the field best", func(t *testing.T) {
		got := GapToLeader(records, "", 0)
		require.Len(t, got, 2)
		assert.InDelta(t, 0.5, got[0].Value, 0.0001)
		assert.InDelta(t, 0.5, got[1].Value, 0.0001)
	})

	t.Run("capped at a lap", func(t *testing.T) {
		got := GapToLeader(records, "12", 1)
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].Lap)
	})

	t.Run("unknown vehicle yields absent points", func(t *testing.T) {
		got := GapToLeader(records, "99", 0)
		require.Len(t, got, 2)
		assert.True(t, math.IsNaN(got[0].Value))
		assert.True(t, math.IsNaN(got[1].Value))
	})

	t.Run("no records", func(t *testing.T) {
		assert.Empty(t, GapToLeader(nil, "12", 0))
	})
}
