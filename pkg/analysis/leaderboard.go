package analysis

import (
	"math"
	"sort"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

// Leaderboard ranks the vehicles of a replay slice by estimated
// cumulative race time. Missing lap times are filled with the rolling
// pace at that lap, so vehicles with patchy timing do not sink to a
// zero total; consistency uses a window of at least six laps. A window
// below one falls back to DefaultPaceWindow.
func Leaderboard(records []model.LapRecord, window int) []model.LeaderboardRow {
	if window < 1 {
		window = DefaultPaceWindow
	}
	consWindow := window
	if consWindow < 6 {
		consWindow = 6
	}

	var rows []model.LeaderboardRow
	for _, id := range model.VehicleIDs(records) {
		recs := vehicleRecords(records, id)
		times := model.LapTimes(recs)
		pace := Pace(times, window)
		cons := RollingConsistency(times, consWindow)

		row := model.LeaderboardRow{VehicleID: id}
		cum := 0.0
		for i, rec := range recs {
			if rec.Lap > row.LapsDone {
				row.LapsDone = rec.Lap
			}
			v := times[i]
			if math.IsNaN(v) {
				v = pace[i]
			}
			if !math.IsNaN(v) {
				cum += v
			}
		}
		row.EstCumTimeS = cum
		row.CurrentPaceS = toNull(lastValue(pace))
		row.BestLapS = toNull(nanMin(times))
		row.ConsistencyStd = toNull(lastValue(cons))
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].EstCumTimeS < rows[j].EstCumTimeS
	})
	return rows
}
