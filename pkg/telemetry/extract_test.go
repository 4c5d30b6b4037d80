package telemetry

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

func longSamples() []model.Sample {
	return []model.Sample{
		{VehicleID: "12", Lap: 1, Name: "speed", Value: 180},
		{VehicleID: "12", Lap: 1, Name: "speed", Value: 184},
		{VehicleID: "12", Lap: 1, Name: "gear", Value: 4},
		{VehicleID: "12", Lap: 2, Name: "speed", Value: 183},
		{VehicleID: "44", Lap: 1, Name: "speed", Value: 176},
		{VehicleID: "44", Lap: 1, Name: "pbrake_f", Value: 22},
	}
}

func TestPivot(t *testing.T) {
	table := Pivot(longSamples())

	assert.Equal(t, []string{"gear", "pbrake_f", "speed"}, table.Channels)
	require.Len(t, table.Rows, 3)

	assert.Equal(t, "12", table.Rows[0].VehicleID)
	assert.Equal(t, 1, table.Rows[0].Lap)
	assert.InDelta(t, 182, table.Rows[0].Value("speed"), 0.0001)
	assert.InDelta(t, 4, table.Rows[0].Value("gear"), 0.0001)
	assert.True(t, math.IsNaN(table.Rows[0].Value("pbrake_f")))

	assert.Equal(t, 2, table.Rows[1].Lap)
	assert.Equal(t, "44", table.Rows[2].VehicleID)
	assert.InDelta(t, 22, table.Rows[2].Value("pbrake_f"), 0.0001)
}

func TestPivotSkipsNaNValues(t *testing.T) {
	table := Pivot([]model.Sample{
		{VehicleID: "12", Lap: 1, Name: "speed", Value: 180},
		{VehicleID: "12", Lap: 1, Name: "speed", Value: math.NaN()},
		{VehicleID: "12", Lap: 1, Name: "dead_channel", Value: math.NaN()},
	})

	// a channel without a single numeric value disappears entirely
	assert.Equal(t, []string{"speed"}, table.Channels)
	require.Len(t, table.Rows, 1)
	assert.InDelta(t, 180, table.Rows[0].Value("speed"), 0.0001)
}

func TestPivotEmpty(t *testing.T) {
	assert.True(t, Pivot(nil).Empty())
}

func TestMetricChannels(t *testing.T) {
	got := metricChannels([]string{
		"accx_can", "aps", "gear", "nmot", "PBrake_F", "pbrake_r", "speed",
	})
	assert.Equal(t, map[model.Metric]string{
		model.MetricSpeed:        "speed",
		model.MetricFuelUsage:    "aps",
		model.MetricBrakeUsage:   "PBrake_F",
		model.MetricAcceleration: "accx_can",
		model.MetricGear:         "gear",
		model.MetricRPM:          "nmot",
	}, got)
}

func TestMetricChannelsPartial(t *testing.T) {
	got := metricChannels([]string{"speed", "water_temp"})
	assert.Equal(t, map[model.Metric]string{model.MetricSpeed: "speed"}, got)
}

//nolint:funlen // ok for test code
func TestExtract(t *testing.T) {
	long := model.LongData(longSamples())

	tests := []struct {
		name        string
		data        *model.TelemetryData
		filter      Filter
		wantRows    int
		wantMetrics []model.Metric
	}{
		{
			name:        "unfiltered long input",
			data:        long,
			filter:      Filter{},
			wantRows:    3,
			wantMetrics: []model.Metric{
				model.MetricSpeed, model.MetricGear, model.MetricBrakeUsage,
			},
		},
		{
			name:        "vehicle filter drops other channels with their rows",
			data:        long,
			filter:      Filter{VehicleID: "12"},
			wantRows:    2,
			wantMetrics: []model.Metric{
				model.MetricSpeed, model.MetricGear,
			},
		},
		{
			name:        "lap range is inclusive",
			data:        long,
			filter:      Filter{FromLap: 2, ToLap: 2},
			wantRows:    1,
			wantMetrics: []model.Metric{model.MetricSpeed},
		},
		{
			name:        "inverted lap range yields nothing",
			data:        long,
			filter:      Filter{FromLap: 3, ToLap: 2},
			wantRows:    0,
			wantMetrics: []model.Metric{},
		},
		{
			name:        "unknown vehicle yields nothing",
			data:        long,
			filter:      Filter{VehicleID: "99"},
			wantRows:    0,
			wantMetrics: []model.Metric{},
		},
		{
			name:        "empty data",
			data:        &model.TelemetryData{Shape: model.ShapeEmpty},
			filter:      Filter{},
			wantRows:    0,
			wantMetrics: []model.Metric{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics, table := Extract(tt.data, tt.filter)
			assert.Len(t, table.Rows, tt.wantRows)
			assert.Len(t, metrics, len(tt.wantMetrics))
			for _, m := range tt.wantMetrics {
				assert.Contains(t, metrics, m)
			}
		})
	}
}

func TestExtractValuesFromLongInput(t *testing.T) {
	metrics, _ := Extract(model.LongData(longSamples()), Filter{VehicleID: "12"})

	speed := metrics[model.MetricSpeed]
	require.Len(t, speed, 2)
	assert.Equal(t, model.Key{VehicleID: "12", Lap: 1}, speed[0].Key)
	assert.InDelta(t, 182, speed[0].Value, 0.0001)
	assert.Equal(t, model.Key{VehicleID: "12", Lap: 2}, speed[1].Key)
	assert.InDelta(t, 183, speed[1].Value, 0.0001)

	// gear was only recorded on lap 1
	gear := metrics[model.MetricGear]
	require.Len(t, gear, 2)
	assert.InDelta(t, 4, gear[0].Value, 0.0001)
	assert.True(t, math.IsNaN(gear[1].Value))
}

func TestExtractSeriesShape(t *testing.T) {
	metrics, _ := Extract(model.LongData(longSamples()), Filter{VehicleID: "44"})

	want := model.MetricSeries{
		model.MetricSpeed: model.Series{
			{Key: model.Key{VehicleID: "44", Lap: 1}, Value: 176},
		},
		model.MetricBrakeUsage: model.Series{
			{Key: model.Key{VehicleID: "44", Lap: 1}, Value: 22},
		},
	}
	if diff := cmp.Diff(want, metrics); diff != "" {
		t.Errorf("series not correct: %s", diff)
	}
}

func TestExtractFromWideInput(t *testing.T) {
	wide := model.WideData(sampleWideTable())

	metrics, table := Extract(wide, Filter{VehicleID: "12", FromLap: 1, ToLap: 1})
	require.Len(t, table.Rows, 1)
	// wide input keeps its channel set; filtering only drops rows
	assert.Equal(t, []string{"gear", "speed"}, table.Channels)

	speed := metrics[model.MetricSpeed]
	require.Len(t, speed, 1)
	assert.InDelta(t, 181.25, speed[0].Value, 0.0001)
}
