package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/tabular"
)

// weatherPaceWindow smooths the pace series the weather readings are
// correlated against.
const weatherPaceWindow = 5

var ErrNoWeatherData = errors.New("no weather data")

// WeatherMetricColumns lists the columns of a weather table that look
// like weather readings: anything mentioning temperature, wind or
// rain, in table order.
func WeatherMetricColumns(rs *tabular.RowSet) []string {
	if rs == nil {
		return nil
	}
	var ret []string
	for _, col := range rs.Columns {
		name := strings.ToLower(col)
		if strings.Contains(name, "temp") ||
			strings.Contains(name, "wind") ||
			strings.Contains(name, "rain") {
			ret = append(ret, col)
		}
	}
	return ret
}

// WeatherCorrelation relates one weather metric to one vehicle's
// rolling pace. The weather table and the vehicle's laps rarely share
// a clock, so the readings are stretched over the lap sequence by
// index before pairing. Pairs with an unusable side are excluded from
// the Pearson correlation; fewer than two usable pairs leave it
// absent.
//
// An empty vehicleID picks the first vehicle of the slice, an empty
// metric the first weather-looking column.
func WeatherCorrelation(
	records []model.LapRecord, wx *tabular.RowSet, vehicleID, metric string,
) (*model.WeatherImpact, error) {
	if wx.Empty() {
		return nil, ErrNoWeatherData
	}
	if vehicleID == "" {
		ids := model.VehicleIDs(records)
		if len(ids) == 0 {
			return nil, errors.New("no vehicles in slice")
		}
		sort.Strings(ids)
		vehicleID = ids[0]
	}
	if metric == "" {
		candidates := WeatherMetricColumns(wx)
		if len(candidates) == 0 {
			return nil, errors.New("weather table has no metric columns")
		}
		metric = candidates[0]
	}
	metricIdx := wx.ColumnIndex(metric)
	if metricIdx < 0 {
		return nil, fmt.Errorf("weather table has no column %q", metric)
	}

	ret := &model.WeatherImpact{VehicleID: vehicleID, Metric: metric}
	crew := vehicleRecords(records, vehicleID)
	if len(crew) == 0 {
		return ret, nil
	}
	pace := Pace(model.LapTimes(crew), weatherPaceWindow)
	ret.LatestPaceS = toNull(pace[len(pace)-1])

	var xs, ys []float64
	for i := range crew {
		wxRow := wx.Rows[stretchIndex(len(wx.Rows), len(crew), i)]
		w, ok := tabular.AsFloat(wxRow[metricIdx])
		if !ok || math.IsNaN(w) || math.IsNaN(pace[i]) {
			continue
		}
		xs = append(xs, w)
		ys = append(ys, pace[i])
		ret.Points = append(ret.Points, model.WeatherPoint{Weather: w, PaceS: pace[i]})
	}
	if len(xs) >= 2 {
		ret.Correlation = toNull(stat.Correlation(xs, ys, nil))
	}
	return ret, nil
}

// stretchIndex spreads n positions evenly over m rows: the floor of a
// linear ramp from the first row to the last.
func stretchIndex(m, n, i int) int {
	if n <= 1 || m <= 1 {
		return 0
	}
	return (m - 1) * i / (n - 1)
}
