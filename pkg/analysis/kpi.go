package analysis

import (
	"math"
	"sort"

	"github.com/aarondl/opt/null"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

// Linear decay parameters of the fuel and tyre estimates. Deliberately
// crude stand-ins for real models, kept swappable behind FuelLevel and
// TyreLife.
const (
	tankSizeL      = 100.0
	fuelBurnPerLap = 0.5
	tyreWearPerLap = 0.3

	neutralThrottleFactor = 0.5
	neutralBrakeFactor    = 1.0

	// defaultUsage fills laps without telemetry in the trend series,
	// mid-scale on the 0-100 usage range.
	defaultUsage = 50.0

	// pitTyreThreshold is the tyre life below which a pit lap gets
	// suggested.
	pitTyreThreshold = 50.0
)

// FuelLevel estimates the fuel remaining after the given lap from the
// average throttle on a 0-100 scale. NaN throttle falls back to the
// neutral factor; an exhausted tank clamps at zero.
func FuelLevel(lap int, avgThrottle float64) float64 {
	factor := neutralThrottleFactor
	if !math.IsNaN(avgThrottle) {
		factor = avgThrottle / 100
	}
	return clampZero(tankSizeL - float64(lap)*fuelBurnPerLap*factor)
}

// TyreLife estimates the tyre life left after the given lap from the
// average brake usage on a 0-100 scale, clamped at zero.
func TyreLife(lap int, avgBrake float64) float64 {
	factor := neutralBrakeFactor
	if !math.IsNaN(avgBrake) {
		factor = avgBrake / 100
	}
	return clampZero(100 - float64(lap)*tyreWearPerLap*factor)
}

// Snapshot condenses a replay slice into the headline numbers: lap
// totals, gap to the leader, fuel and tyre estimates and a pit lap
// once tyre life drops below half.
//
// all is the complete race; filtered is the slice narrowed to the
// selected vehicle and lap, and metrics should cover that same slice.
// Without a vehicle the gap compares the field's average best against
// the field's best; with one it compares the vehicle's best against
// the best of the whole race. Missing metrics switch fuel and tyre to
// their plain decay fallbacks.
func Snapshot(
	all, filtered []model.LapRecord, vehicleID string, currentLap int,
	metrics model.MetricSeries,
) model.RaceSnapshot {
	if len(filtered) == 0 {
		return model.RaceSnapshot{VehicleID: vehicleID}
	}
	if currentLap < 1 {
		currentLap = 1
	}
	ret := model.RaceSnapshot{
		VehicleID:  vehicleID,
		CurrentLap: currentLap,
		TotalCars:  len(model.VehicleIDs(all)),
		TotalLaps:  model.MaxLap(all),
		GapToLeadS: toNull(gapToLead(all, filtered, vehicleID)),
	}

	fuel := clampZero(tankSizeL - float64(currentLap)*fuelBurnPerLap)
	if s, ok := metrics[model.MetricFuelUsage]; ok && !s.Empty() {
		fuel = FuelLevel(currentLap, s.Mean())
	}
	ret.FuelL = null.From(fuel)

	tyre := clampZero(100 - float64(currentLap)*tyreWearPerLap)
	if s, ok := metrics[model.MetricBrakeUsage]; ok && !s.Empty() {
		tyre = TyreLife(currentLap, s.Mean())
	}
	ret.TyreLifePct = null.From(tyre)
	if tyre > 0 && tyre < pitTyreThreshold {
		ret.PitLap = null.From(currentLap + int(tyre/tyreWearPerLap))
	}
	return ret
}

// GapToLeader traces the gap-to-lead KPI lap by lap through the given
// records. With a vehicle each point compares the vehicle's best lap
// so far against the best of all records; without one it compares the
// field's average best so far against the field's best so far. Laps
// where no side has a usable time yet yield NaN points. throughLap
// caps the series, zero means all laps.
func GapToLeader(records []model.LapRecord, vehicleID string, throughLap int) []model.TrendPoint {
	laps := distinctLaps(records, throughLap)
	if len(laps) == 0 {
		return nil
	}
	byLap := make(map[int][]model.LapRecord, len(laps))
	for _, rec := range records {
		byLap[rec.Lap] = append(byLap[rec.Lap], rec)
	}
	leadAll := nanMin(model.LapTimes(records))

	bestSoFar := make(map[string]float64)
	ret := make([]model.TrendPoint, 0, len(laps))
	for _, lap := range laps {
		for _, rec := range byLap[lap] {
			v := rec.LapTimeS.GetOr(math.NaN())
			if math.IsNaN(v) {
				continue
			}
			if cur, ok := bestSoFar[rec.VehicleID]; !ok || v < cur {
				bestSoFar[rec.VehicleID] = v
			}
		}
		gap := math.NaN()
		if vehicleID != "" {
			if own, ok := bestSoFar[vehicleID]; ok {
				gap = own - leadAll
			}
		} else if len(bestSoFar) > 0 {
			mins := make([]float64, 0, len(bestSoFar))
			for _, v := range bestSoFar {
				mins = append(mins, v)
			}
			gap = nanMean(mins) - nanMin(mins)
		}
		ret = append(ret, model.TrendPoint{Lap: lap, Value: gap})
	}
	return ret
}

func gapToLead(all, filtered []model.LapRecord, vehicleID string) float64 {
	if vehicleID != "" {
		own := nanMin(model.LapTimes(vehicleRecords(filtered, vehicleID)))
		return own - nanMin(model.LapTimes(all))
	}
	mins := make([]float64, 0)
	for _, id := range model.VehicleIDs(filtered) {
		mins = append(mins, nanMin(model.LapTimes(vehicleRecords(filtered, id))))
	}
	return nanMean(mins) - nanMin(mins)
}

// clampZero floors at zero. NaN also comes back as zero, which keeps
// estimates fed from all-NaN usage factors renderable.
func clampZero(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

func toNull(v float64) null.Val[float64] {
	if math.IsNaN(v) {
		return null.Val[float64]{}
	}
	return null.From(v)
}

func vehicleRecords(records []model.LapRecord, vehicleID string) []model.LapRecord {
	out := make([]model.LapRecord, 0, len(records))
	for _, rec := range records {
		if rec.VehicleID == vehicleID {
			out = append(out, rec)
		}
	}
	return out
}

// distinctLaps returns the sorted distinct lap numbers of the records,
// capped at throughLap when that is positive.
func distinctLaps(records []model.LapRecord, throughLap int) []int {
	seen := make(map[int]bool)
	var laps []int
	for _, rec := range records {
		if throughLap > 0 && rec.Lap > throughLap {
			continue
		}
		if !seen[rec.Lap] {
			seen[rec.Lap] = true
			laps = append(laps, rec.Lap)
		}
	}
	sort.Ints(laps)
	return laps
}
