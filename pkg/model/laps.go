package model

import (
	"github.com/aarondl/opt/null"
)

// LapRecord is one reconstructed (vehicle, lap, duration) tuple.
// LapTimeS is absent when no duration could be derived for the lap
// (first lap of a stint, unparseable timestamps, end-log only rows).
type LapRecord struct {
	VehicleID string            `json:"vehicleId"`
	Lap       int               `json:"lap"`
	LapTimeS  null.Val[float64] `json:"lapTimeS"`
}

// Key identifies a (vehicle, lap) pair in series and wide tables.
type Key struct {
	VehicleID string `json:"vehicleId"`
	Lap       int    `json:"lap"`
}

// LapTimes returns the durations of records in order, math.NaN for absent.
func LapTimes(records []LapRecord) []float64 {
	ret := make([]float64, len(records))
	for i := range records {
		ret[i] = records[i].LapTimeS.GetOr(nan())
	}
	return ret
}

// VehicleIDs returns the distinct vehicle ids in first-seen order.
func VehicleIDs(records []LapRecord) []string {
	seen := make(map[string]struct{})
	ret := make([]string, 0)
	for i := range records {
		if _, ok := seen[records[i].VehicleID]; !ok {
			seen[records[i].VehicleID] = struct{}{}
			ret = append(ret, records[i].VehicleID)
		}
	}
	return ret
}

// MaxLap returns the highest lap number present, 0 for empty input.
func MaxLap(records []LapRecord) int {
	ret := 0
	for i := range records {
		if records[i].Lap > ret {
			ret = records[i].Lap
		}
	}
	return ret
}
