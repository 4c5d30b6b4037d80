package analysis

import (
	"math"
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

func timed(id string, lap int, dur float64) model.LapRecord {
	return model.LapRecord{VehicleID: id, Lap: lap, LapTimeS: null.From(dur)}
}

func untimed(id string, lap int) model.LapRecord {
	return model.LapRecord{VehicleID: id, Lap: lap}
}

func assertSeries(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 0.0001, "index %d", i)
	}
}

func TestRollingConsistency(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		values []float64
		window int
		want   []float64
	}{
		{
			name:   "warms up through the deviation stage",
			values: []float64{100, 101, 102, 103, 104},
			window: 3,
			want:   []float64{nan, nan, nan, nan, 1.4826},
		},
		{
			name:   "default window",
			values: []float64{90, 92, 91, 95, 89, 93, 94, 90},
			window: 0,
			want:   []float64{nan, nan, nan, nan, 2.9652, 2.59455, 2.9652, 2.59455},
		},
		{
			name:   "absent inputs never count",
			values: []float64{90, nan, 91, 92, 93},
			window: 3,
			want:   []float64{nan, nan, nan, nan, nan},
		},
		{
			name:   "empty",
			values: nil,
			window: 8,
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RollingConsistency(tt.values, tt.window)
			assertSeries(t, tt.want, got)
			for i, v := range got {
				if !math.IsNaN(v) {
					assert.GreaterOrEqual(t, v, 0.0, "index %d", i)
				}
			}
		})
	}
}

func TestRollingConsistencyFirstTwoAbsent(t *testing.T) {
	got := RollingConsistency([]float64{90, 90, 90, 90, 90, 90, 90, 90}, 0)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	// a perfectly flat series eventually scores zero spread
	assert.InDelta(t, 0, got[7], 0.0001)
}

func TestPace(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		values []float64
		window int
		want   []float64
	}{
		{
			name:   "single value is enough",
			values: []float64{100, 102, nan, 104},
			window: 2,
			want:   []float64{100, 101, 102, 104},
		},
		{
			name:   "all absent stays absent",
			values: []float64{nan, nan},
			window: 5,
			want:   []float64{nan, nan},
		},
		{
			name:   "window wider than series",
			values: []float64{90, 92, 94},
			window: 10,
			want:   []float64{90, 91, 92},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertSeries(t, tt.want, Pace(tt.values, tt.window))
		})
	}
}

func TestBestLap(t *testing.T) {
	records := []model.LapRecord{
		timed("12", 1, 92.1),
		timed("12", 2, 90.3),
		timed("12", 3, 95.0),
	}
	assert.InDelta(t, 90.3, BestLap(records), 0.0001)
}

func TestBestLapWithoutTimes(t *testing.T) {
	assert.True(t, math.IsNaN(BestLap(nil)))
	assert.True(t, math.IsNaN(BestLap([]model.LapRecord{untimed("12", 1)})))
}
