package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/samber/lo"

	"github.com/raceiq/raceiq-core-go/pkg/analysis"
	"github.com/raceiq/raceiq-core-go/pkg/model"
)

type renderable interface {
	Render(w io.Writer) error
}

// chartRef ties a rendered chart file to its place on the index page.
type chartRef struct {
	File  string
	Title string
	chart renderable
}

func buildCharts(d *raceData) []chartRef {
	ret := []chartRef{
		{File: "lap_trend.html", Title: "Lap Time Trend",
			chart: lapTrendChart(d.records)},
		{File: "pace.html", Title: "Pace by Vehicle",
			chart: paceChart(d.records)},
		{File: "fuel_tyre.html", Title: "Fuel & Tyre Projection",
			chart: fuelTyreChart(d.fuel, d.tyre)},
		{File: "best_laps.html", Title: "Best Laps",
			chart: bestLapChart(d.stats)},
	}
	if c := speedTrendChart(d.metrics); c != nil {
		ret = append(ret, chartRef{
			File: "speed.html", Title: "Speed Trend", chart: c})
	}
	if d.impact != nil && len(d.impact.Points) > 0 {
		ret = append(ret, chartRef{
			File: "weather.html", Title: "Weather vs Pace",
			chart: weatherChart(d.impact)})
	}
	return ret
}

func writeChart(path string, chart renderable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return chart.Render(f)
}

// echarts cannot serialize NaN; missing points become "-" which the
// renderer treats as a gap
func floatOrGap(v float64) any {
	if math.IsNaN(v) {
		return "-"
	}
	return v
}

func distinctLaps(records []model.LapRecord) []int {
	laps := lo.Uniq(lo.Map(records, func(r model.LapRecord, _ int) int {
		return r.Lap
	}))
	sort.Ints(laps)
	return laps
}

func lapLabels(laps []int) []string {
	return lo.Map(laps, func(lap, _ int) string { return strconv.Itoa(lap) })
}

func newLine(title, subtitle, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title, Width: "920px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "lap"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	return line
}

func lapTrendChart(records []model.LapRecord) *charts.Line {
	laps := distinctLaps(records)
	type cell struct {
		sum float64
		n   int
	}
	byLap := make(map[int]*cell, len(laps))
	for i := range records {
		if records[i].LapTimeS.IsNull() {
			continue
		}
		c, ok := byLap[records[i].Lap]
		if !ok {
			c = &cell{}
			byLap[records[i].Lap] = c
		}
		c.sum += records[i].LapTimeS.GetOrZero()
		c.n++
	}
	data := make([]opts.LineData, 0, len(laps))
	for _, lap := range laps {
		value := any("-")
		if c, ok := byLap[lap]; ok && c.n > 0 {
			value = c.sum / float64(c.n)
		}
		data = append(data, opts.LineData{Value: value})
	}

	line := newLine("Lap Time Trend", "field average per lap", "s")
	line.SetXAxis(lapLabels(laps)).
		AddSeries("Avg Lap Time (s)", data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

func paceChart(records []model.LapRecord) *charts.Line {
	laps := distinctLaps(records)
	line := newLine("Pace by Vehicle",
		fmt.Sprintf("rolling mean over %d laps", analysis.DefaultPaceWindow), "s")
	line.SetXAxis(lapLabels(laps))
	for _, id := range model.VehicleIDs(records) {
		recs := lo.Filter(records, func(r model.LapRecord, _ int) bool {
			return r.VehicleID == id
		})
		pace := analysis.Pace(model.LapTimes(recs), analysis.DefaultPaceWindow)
		byLap := make(map[int]float64, len(recs))
		for i := range recs {
			byLap[recs[i].Lap] = pace[i]
		}
		data := make([]opts.LineData, 0, len(laps))
		for _, lap := range laps {
			value := any("-")
			if v, ok := byLap[lap]; ok && !math.IsNaN(v) {
				value = v
			}
			data = append(data, opts.LineData{Value: value})
		}
		line.AddSeries(id, data)
	}
	return line
}

func fuelTyreChart(fuel, tyre []model.TrendPoint) *charts.Line {
	byLapFuel := make(map[int]float64, len(fuel))
	byLapTyre := make(map[int]float64, len(tyre))
	lapSet := make(map[int]struct{}, len(fuel))
	for _, p := range fuel {
		byLapFuel[p.Lap] = p.Value
		lapSet[p.Lap] = struct{}{}
	}
	for _, p := range tyre {
		byLapTyre[p.Lap] = p.Value
		lapSet[p.Lap] = struct{}{}
	}
	laps := lo.Keys(lapSet)
	sort.Ints(laps)

	series := func(byLap map[int]float64) []opts.LineData {
		data := make([]opts.LineData, 0, len(laps))
		for _, lap := range laps {
			value := any("-")
			if v, ok := byLap[lap]; ok && !math.IsNaN(v) {
				value = v
			}
			data = append(data, opts.LineData{Value: value})
		}
		return data
	}

	line := newLine("Fuel & Tyre Projection",
		"estimated fuel (L) and tyre life (%) per lap", "")
	line.SetXAxis(lapLabels(laps)).
		AddSeries("Fuel (L)", series(byLapFuel)).
		AddSeries("Tyre life (%)", series(byLapTyre))
	return line
}

func speedTrendChart(metrics model.MetricSeries) *charts.Line {
	speed, ok := metrics[model.MetricSpeed]
	if !ok || speed.Empty() {
		return nil
	}
	lapSet := make(map[int]struct{})
	for i := range speed {
		lapSet[speed[i].Lap] = struct{}{}
	}
	laps := lo.Keys(lapSet)
	sort.Ints(laps)
	data := make([]opts.LineData, 0, len(laps))
	for _, lap := range laps {
		data = append(data, opts.LineData{Value: floatOrGap(speed.LapMean(lap))})
	}

	line := newLine("Speed Trend", "mean speed per lap, all vehicles", "km/h")
	line.SetXAxis(lapLabels(laps)).
		AddSeries("speed", data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

func bestLapChart(stats []model.DriverStat) *charts.Bar {
	x := make([]string, 0, len(stats))
	data := make([]opts.BarData, 0, len(stats))
	for i := range stats {
		x = append(x, stats[i].VehicleID)
		value := any("-")
		if !stats[i].BestLapS.IsNull() {
			value = stats[i].BestLapS.GetOrZero()
		}
		data = append(data, opts.BarData{Value: value})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Best Laps", Width: "920px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title: "Best Laps", Subtitle: "fastest lap per vehicle"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "s"}),
	)
	bar.SetXAxis(x).
		AddSeries("best lap", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

func weatherChart(impact *model.WeatherImpact) *charts.Scatter {
	subtitle := fmt.Sprintf("%s, vehicle %s, correlation n/a",
		impact.Metric, impact.VehicleID)
	if !impact.Correlation.IsNull() {
		subtitle = fmt.Sprintf("%s, vehicle %s, correlation %.3f",
			impact.Metric, impact.VehicleID, impact.Correlation.GetOrZero())
	}
	data := make([]opts.ScatterData, 0, len(impact.Points))
	for _, p := range impact.Points {
		data = append(data, opts.ScatterData{Value: []any{p.Weather, p.PaceS}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Weather vs Pace", Width: "920px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Weather vs Pace", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: impact.Metric}),
		charts.WithYAxisOpts(opts.YAxis{Name: "pace (s)"}),
	)
	scatter.AddSeries("laps", data,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}
