package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

func trendLaps() []model.LapRecord {
	return []model.LapRecord{
		timed("12", 1, 91),
		timed("12", 2, 92),
		timed("12", 3, 90),
	}
}

func TestFuelTrend(t *testing.T) {
	metrics := model.MetricSeries{
		model.MetricFuelUsage: {
			{Key: model.Key{VehicleID: "12", Lap: 1}, Value: 60},
			{Key: model.Key{VehicleID: "12", Lap: 2}, Value: math.NaN()},
		},
	}
	got := FuelTrend(trendLaps(), metrics)
	require.Len(t, got, 3)

	assert.Equal(t, 1, got[0].Lap)
	assert.InDelta(t, 99.7, got[0].Value, 0.0001)
	// lap 2 exists in the telemetry but carries no usable value
	assert.InDelta(t, 0, got[1].Value, 0.0001)
	// lap 3 never saw telemetry and assumes mid-scale usage
	assert.InDelta(t, 99.25, got[2].Value, 0.0001)
}

func TestFuelTrendWithoutFuelMetric(t *testing.T) {
	got := FuelTrend(trendLaps(), model.MetricSeries{})
	require.Len(t, got, 3)
	assert.InDelta(t, 99.75, got[0].Value, 0.0001)
}

func TestFuelTrendWithoutTelemetry(t *testing.T) {
	records := append(trendLaps(), timed("12", 250, 95))
	got := FuelTrend(records, nil)
	require.Len(t, got, 4)
	assert.InDelta(t, 99.5, got[0].Value, 0.0001)
	// the bare decay line is not clamped
	assert.InDelta(t, -25, got[3].Value, 0.0001)
}

func TestFuelTrendEmpty(t *testing.T) {
	assert.Empty(t, FuelTrend(nil, nil))
}

func TestTyreTrend(t *testing.T) {
	metrics := model.MetricSeries{
		model.MetricBrakeUsage: {
			{Key: model.Key{VehicleID: "12", Lap: 1}, Value: 60},
		},
	}
	got := TyreTrend(trendLaps(), metrics)
	require.Len(t, got, 3)

	// usage 60 raises the wear factor to 1.3
	assert.InDelta(t, 99.61, got[0].Value, 0.0001)
	// default usage 50 gives factor 1.25
	assert.InDelta(t, 99.25, got[1].Value, 0.0001)
	assert.InDelta(t, 98.875, got[2].Value, 0.0001)
}

func TestTyreTrendWithoutTelemetry(t *testing.T) {
	got := TyreTrend(trendLaps(), nil)
	require.Len(t, got, 3)
	assert.InDelta(t, 99.7, got[0].Value, 0.0001)
	assert.InDelta(t, 99.4, got[1].Value, 0.0001)
	assert.InDelta(t, 99.1, got[2].Value, 0.0001)
}
