package model

import (
	"math"
	"time"
)

// column names of the long telemetry format and the timing tables
const (
	ColVehicleID      = "vehicle_id"
	ColLap            = "lap"
	ColTelemetryName  = "telemetry_name"
	ColTelemetryValue = "telemetry_value"
	ColTimestamp      = "timestamp"
	ColMetaTime       = "meta_time"
)

// Metric is a semantic name derived from a physical telemetry channel.
type Metric string

const (
	MetricSpeed        Metric = "speed"
	MetricFuelUsage    Metric = "fuel_usage"
	MetricBrakeUsage   Metric = "brake_usage"
	MetricAcceleration Metric = "acceleration"
	MetricGear         Metric = "gear"
	MetricRPM          Metric = "rpm"
)

// Sample is one row of the long telemetry format.
// Value is NaN when the source value did not parse, Timestamp is the
// zero value when the source timestamp did not parse.
type Sample struct {
	VehicleID string
	Lap       int
	Name      string
	Value     float64
	Timestamp time.Time
}

// WideRow holds the per-channel means for one (vehicle, lap) pair.
type WideRow struct {
	VehicleID string
	Lap       int
	Values    map[string]float64
}

// Value returns the channel value, NaN when the channel is not present.
func (r *WideRow) Value(channel string) float64 {
	if v, ok := r.Values[channel]; ok {
		return v
	}
	return math.NaN()
}

// WideTable is the pivoted telemetry shape: one row per (vehicle, lap),
// one column per channel.
type WideTable struct {
	Channels []string
	Rows     []WideRow
}

func (t *WideTable) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

func (t *WideTable) HasChannel(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Channels {
		if c == name {
			return true
		}
	}
	return false
}

// Row returns the row for the given key.
func (t *WideTable) Row(vehicleID string, lap int) (*WideRow, bool) {
	if t == nil {
		return nil, false
	}
	for i := range t.Rows {
		if t.Rows[i].VehicleID == vehicleID && t.Rows[i].Lap == lap {
			return &t.Rows[i], true
		}
	}
	return nil, false
}

// SeriesPoint is one indexed value of a metric series.
type SeriesPoint struct {
	Key
	Value float64
}

// Series holds metric values indexed by (vehicle, lap) in table order.
type Series []SeriesPoint

func (s Series) Empty() bool {
	return len(s) == 0
}

// Mean returns the mean of the non-NaN values, NaN when there are none.
func (s Series) Mean() float64 {
	sum, n := 0.0, 0
	for i := range s {
		if !math.IsNaN(s[i].Value) {
			sum += s[i].Value
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// HasLap reports whether the series carries any point for the lap,
// including NaN-valued ones. Callers use this to tell "lap missing"
// from "lap present but unusable".
func (s Series) HasLap(lap int) bool {
	for i := range s {
		if s[i].Lap == lap {
			return true
		}
	}
	return false
}

// LapMean returns the mean of the non-NaN values recorded for the lap
// across all vehicles in the series, NaN when the lap is not present.
func (s Series) LapMean(lap int) float64 {
	sum, n := 0.0, 0
	for i := range s {
		if s[i].Lap == lap && !math.IsNaN(s[i].Value) {
			sum += s[i].Value
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// MetricSeries maps semantic metrics to their value series. A metric is
// present only if its source channel exists in the underlying data.
type MetricSeries map[Metric]Series

// TelemetryShape tags which representation a TelemetryData holds.
type TelemetryShape int

const (
	ShapeEmpty TelemetryShape = iota
	ShapeLong
	ShapeWide
)

// TelemetryData is the resolved telemetry input: either raw long-format
// samples or an aggregated wide table. The shape is determined once at
// the loading boundary so downstream code never re-sniffs columns.
type TelemetryData struct {
	Shape TelemetryShape
	Long  []Sample
	Wide  *WideTable
}

func LongData(samples []Sample) *TelemetryData {
	if len(samples) == 0 {
		return &TelemetryData{Shape: ShapeEmpty}
	}
	return &TelemetryData{Shape: ShapeLong, Long: samples}
}

func WideData(table *WideTable) *TelemetryData {
	if table.Empty() {
		return &TelemetryData{Shape: ShapeEmpty}
	}
	return &TelemetryData{Shape: ShapeWide, Wide: table}
}

func (t *TelemetryData) Empty() bool {
	if t == nil {
		return true
	}
	switch t.Shape {
	case ShapeLong:
		return len(t.Long) == 0
	case ShapeWide:
		return t.Wide.Empty()
	default:
		return true
	}
}

func nan() float64 {
	return math.NaN()
}
