// Package analysis derives race estimates from lap records and
// telemetry metrics: rolling pace and consistency, fuel and tyre
// models, leaderboards and pit strategy comparisons. The estimators
// are pure functions over their inputs; absent data yields absent
// results rather than errors, so callers can render a uniform
// no-data state.
package analysis

import (
	"math"
	"sort"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

const (
	// DefaultConsistencyWindow is the rolling window of the MAD based
	// consistency score.
	DefaultConsistencyWindow = 8
	// DefaultPaceWindow is the rolling window of the pace average.
	DefaultPaceWindow = 5

	// minConsistencySamples is how many values a window needs before
	// the consistency score leaves its absent state.
	minConsistencySamples = 3

	// madScale makes the median absolute deviation a consistent
	// estimator of the standard deviation under normality.
	madScale = 1.4826
)

// RollingConsistency scores the spread of a lap-time series as the
// scaled rolling median absolute deviation: a rolling median, absolute
// deviations from it, and a rolling median of those again. Both stages
// want three usable values, so the head of the result stays NaN until
// the deviations themselves have warmed up. NaN inputs never count.
// A window below one falls back to DefaultConsistencyWindow.
func RollingConsistency(values []float64, window int) []float64 {
	if window < 1 {
		window = DefaultConsistencyWindow
	}
	med := rollingMedian(values, window, minConsistencySamples)
	dev := make([]float64, len(values))
	for i := range values {
		dev[i] = math.Abs(values[i] - med[i])
	}
	mad := rollingMedian(dev, window, minConsistencySamples)
	for i := range mad {
		mad[i] *= madScale
	}
	return mad
}

// Pace smooths a lap-time series with a rolling mean. One value is
// enough to produce a result; NaN inputs are skipped. A window below
// one falls back to DefaultPaceWindow.
func Pace(values []float64, window int) []float64 {
	if window < 1 {
		window = DefaultPaceWindow
	}
	out := make([]float64, len(values))
	for i := range values {
		sum, n := 0.0, 0
		for _, v := range values[windowStart(i, window) : i+1] {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// BestLap returns the fastest known lap time, NaN when the records
// carry no durations at all.
func BestLap(records []model.LapRecord) float64 {
	return nanMin(model.LapTimes(records))
}

func windowStart(i, window int) int {
	if s := i - window + 1; s > 0 {
		return s
	}
	return 0
}

func rollingMedian(values []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(values))
	buf := make([]float64, 0, window)
	for i := range values {
		buf = buf[:0]
		for _, v := range values[windowStart(i, window) : i+1] {
			if !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		sort.Float64s(buf)
		out[i] = median(buf)
	}
	return out
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func nanMin(values []float64) float64 {
	best := math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(best) || v < best {
			best = v
		}
	}
	return best
}

func nanMean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// lastValue returns the last non-NaN entry, NaN when there is none.
func lastValue(values []float64) float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i]
		}
	}
	return math.NaN()
}

func lastN(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
