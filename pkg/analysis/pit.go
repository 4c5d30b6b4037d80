package analysis

import (
	"fmt"
	"math"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

// The two strategy advisor calls.
const (
	SuggestionUndercut = "Consider undercut"
	SuggestionStayOut  = "Stay out"

	// undercutThreshold is the average pace delta over the last three
	// laps (in seconds) that flips the advisor to an undercut call.
	undercutThreshold = 0.3
)

// PitDelta compares the rolling pace of two vehicles over a replay
// slice. Lap times pivot into one lap-indexed column per vehicle (mean
// on duplicates, vehicles without a single usable time dropped) before
// smoothing; the cumulative delta carries NaN through laps where
// either side has no pace. A window below one falls back to
// DefaultPaceWindow.
func PitDelta(records []model.LapRecord, you, rival string, window int) (*model.PitComparison, error) {
	if you == rival {
		return nil, fmt.Errorf("need two distinct vehicles, got %q twice", you)
	}
	if window < 1 {
		window = DefaultPaceWindow
	}
	laps, cols := pivotByVehicle(records)
	youTimes, ok := cols[you]
	if !ok {
		return nil, fmt.Errorf("vehicle %q has no usable lap times", you)
	}
	rivalTimes, ok := cols[rival]
	if !ok {
		return nil, fmt.Errorf("vehicle %q has no usable lap times", rival)
	}

	ret := &model.PitComparison{
		You:        you,
		Rival:      rival,
		Laps:       laps,
		YouPaceS:   Pace(youTimes, window),
		RivalPaceS: Pace(rivalTimes, window),
		DeltaS:     make([]float64, len(laps)),
		CumDeltaS:  make([]float64, len(laps)),
	}
	cum := 0.0
	for i := range laps {
		d := ret.YouPaceS[i] - ret.RivalPaceS[i]
		ret.DeltaS[i] = d
		if math.IsNaN(d) {
			ret.CumDeltaS[i] = math.NaN()
			continue
		}
		cum += d
		ret.CumDeltaS[i] = cum
	}

	avg := nanMean(lastN(ret.DeltaS, 3))
	ret.Last3AvgS = toNull(avg)
	if !math.IsNaN(avg) && avg > undercutThreshold {
		ret.Suggestion = SuggestionUndercut
	} else {
		ret.Suggestion = SuggestionStayOut
	}
	return ret, nil
}

// pivotByVehicle builds one lap-indexed lap-time column per vehicle,
// averaging duplicate (vehicle, lap) records. Vehicles without any
// usable time get no column at all.
func pivotByVehicle(records []model.LapRecord) ([]int, map[string][]float64) {
	laps := distinctLaps(records, 0)
	if len(laps) == 0 {
		return nil, nil
	}
	lapIdx := make(map[int]int, len(laps))
	for i, lap := range laps {
		lapIdx[lap] = i
	}

	type cell struct {
		sum float64
		n   int
	}
	cells := make(map[string][]cell)
	for _, rec := range records {
		col := cells[rec.VehicleID]
		if col == nil {
			col = make([]cell, len(laps))
			cells[rec.VehicleID] = col
		}
		if v := rec.LapTimeS.GetOr(math.NaN()); !math.IsNaN(v) {
			i := lapIdx[rec.Lap]
			col[i].sum += v
			col[i].n++
		}
	}

	cols := make(map[string][]float64, len(cells))
	for id, col := range cells {
		usable := false
		values := make([]float64, len(laps))
		for i, c := range col {
			if c.n == 0 {
				values[i] = math.NaN()
				continue
			}
			values[i] = c.sum / float64(c.n)
			usable = true
		}
		if usable {
			cols[id] = values
		}
	}
	return laps, cols
}
