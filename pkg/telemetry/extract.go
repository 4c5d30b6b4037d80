package telemetry

import (
	"math"
	"sort"
	"strings"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

// physical channel names of the telemetry exports
const (
	ChannelSpeed        = "speed"
	ChannelThrottle     = "aps"
	ChannelAcceleration = "accx_can"
	ChannelGear         = "gear"
	ChannelRPM          = "nmot"

	// brake pressure channels vary between exports (front/rear,
	// casing); any channel carrying this fragment qualifies
	brakeChannelFragment = "pbrake"
)

// Filter narrows extraction to one vehicle and/or a lap range. Laps
// start at 1, so 0 works as unbounded.
type Filter struct {
	VehicleID string
	FromLap   int
	ToLap     int
}

func (f Filter) keep(vehicleID string, lap int) bool {
	if f.VehicleID != "" && vehicleID != f.VehicleID {
		return false
	}
	if f.FromLap > 0 && lap < f.FromLap {
		return false
	}
	if f.ToLap > 0 && lap > f.ToLap {
		return false
	}
	return true
}

// Extract filters telemetry and derives the semantic metric series.
// Long input is filtered before the pivot; wide input is filtered on
// rows. A metric appears only when its source channel is present.
// Degenerate input (no data, inverted lap range, everything filtered
// out) yields an empty map and an empty table.
func Extract(data *model.TelemetryData, filter Filter) (model.MetricSeries, *model.WideTable) {
	if data.Empty() {
		return model.MetricSeries{}, &model.WideTable{}
	}
	var table *model.WideTable
	switch data.Shape {
	case model.ShapeLong:
		table = Pivot(filterSamples(data.Long, filter))
	case model.ShapeWide:
		table = filterWide(data.Wide, filter)
	default:
		return model.MetricSeries{}, &model.WideTable{}
	}
	if table.Empty() {
		return model.MetricSeries{}, &model.WideTable{}
	}

	metrics := make(model.MetricSeries)
	for metric, channel := range metricChannels(table.Channels) {
		series := make(model.Series, 0, len(table.Rows))
		for i := range table.Rows {
			series = append(series, model.SeriesPoint{
				Key: model.Key{
					VehicleID: table.Rows[i].VehicleID,
					Lap:       table.Rows[i].Lap,
				},
				Value: table.Rows[i].Value(channel),
			})
		}
		metrics[metric] = series
	}
	return metrics, table
}

// metricChannels resolves which physical channel backs each semantic
// metric, given the channels actually present.
func metricChannels(channels []string) map[model.Metric]string {
	present := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		present[ch] = struct{}{}
	}
	ret := make(map[model.Metric]string)
	direct := []struct {
		metric  model.Metric
		channel string
	}{
		{model.MetricSpeed, ChannelSpeed},
		{model.MetricFuelUsage, ChannelThrottle},
		{model.MetricAcceleration, ChannelAcceleration},
		{model.MetricGear, ChannelGear},
		{model.MetricRPM, ChannelRPM},
	}
	for _, d := range direct {
		if _, ok := present[d.channel]; ok {
			ret[d.metric] = d.channel
		}
	}
	for _, ch := range channels {
		if strings.Contains(strings.ToLower(ch), brakeChannelFragment) {
			ret[model.MetricBrakeUsage] = ch
			break
		}
	}
	return ret
}

func filterSamples(samples []model.Sample, filter Filter) []model.Sample {
	ret := make([]model.Sample, 0, len(samples))
	for i := range samples {
		if filter.keep(samples[i].VehicleID, samples[i].Lap) {
			ret = append(ret, samples[i])
		}
	}
	return ret
}

func filterWide(table *model.WideTable, filter Filter) *model.WideTable {
	ret := &model.WideTable{Channels: table.Channels}
	for i := range table.Rows {
		if filter.keep(table.Rows[i].VehicleID, table.Rows[i].Lap) {
			ret.Rows = append(ret.Rows, table.Rows[i])
		}
	}
	return ret
}

// Pivot aggregates long samples into the wide per-lap table: mean per
// (vehicle, lap, channel), NaN values excluded from the mean. Channels
// without a single numeric value are dropped; rows are ordered by
// (vehicle, lap), channels alphabetically.
func Pivot(samples []model.Sample) *model.WideTable {
	if len(samples) == 0 {
		return &model.WideTable{}
	}
	type cell struct {
		sum float64
		n   int
	}
	cells := make(map[model.Key]map[string]*cell)
	channelValues := make(map[string]int)
	for i := range samples {
		s := &samples[i]
		key := model.Key{VehicleID: s.VehicleID, Lap: s.Lap}
		row := cells[key]
		if row == nil {
			row = make(map[string]*cell)
			cells[key] = row
		}
		c := row[s.Name]
		if c == nil {
			c = &cell{}
			row[s.Name] = c
		}
		if !math.IsNaN(s.Value) {
			c.sum += s.Value
			c.n++
			channelValues[s.Name]++
		}
	}

	channels := make([]string, 0, len(channelValues))
	for ch, n := range channelValues {
		if n > 0 {
			channels = append(channels, ch)
		}
	}
	sort.Strings(channels)

	keys := make([]model.Key, 0, len(cells))
	for key := range cells {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].VehicleID != keys[j].VehicleID {
			return keys[i].VehicleID < keys[j].VehicleID
		}
		return keys[i].Lap < keys[j].Lap
	})

	table := &model.WideTable{Channels: channels}
	for _, key := range keys {
		row := model.WideRow{
			VehicleID: key.VehicleID,
			Lap:       key.Lap,
			Values:    make(map[string]float64, len(channels)),
		}
		for ch, c := range cells[key] {
			if c.n > 0 {
				row.Values[ch] = c.sum / float64(c.n)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
