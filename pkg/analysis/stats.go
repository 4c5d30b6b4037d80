package analysis

import (
	"sort"

	"github.com/aarondl/opt/null"
	"gonum.org/v1/gonum/stat"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

// DriverStats summarizes each vehicle's lap times: best, mean, lap
// count and the population deviation of the usable times. Vehicles
// order by best lap, those without one last.
func DriverStats(records []model.LapRecord) []model.DriverStat {
	var ret []model.DriverStat
	for _, id := range model.VehicleIDs(records) {
		recs := vehicleRecords(records, id)
		times := model.LapTimes(recs)
		row := model.DriverStat{
			VehicleID: id,
			BestLapS:  toNull(nanMin(times)),
			MeanLapS:  toNull(nanMean(times)),
			Laps:      len(recs),
		}
		if clean := dropNaN(times); len(clean) > 0 {
			row.ConsistencyStd = null.From(stat.PopStdDev(clean, nil))
		}
		ret = append(ret, row)
	}
	sort.SliceStable(ret, func(i, j int) bool {
		a, b := ret[i].BestLapS, ret[j].BestLapS
		if a.IsNull() {
			return false
		}
		if b.IsNull() {
			return true
		}
		return a.GetOrZero() < b.GetOrZero()
	})
	return ret
}

// CompoundReference is the static compound comparison used by the tyre
// report: expected life, pace delta against the medium and the working
// temperature window.
func CompoundReference() []model.CompoundSpec {
	return []model.CompoundSpec{
		{Compound: "S", LifeLaps: 8, DeltaS: -0.8, TempWindow: "85–100°C"},
		{Compound: "M", LifeLaps: 22, DeltaS: 0.0, TempWindow: "80–95°C"},
		{Compound: "H", LifeLaps: 30, DeltaS: 0.5, TempWindow: "75–90°C"},
	}
}
