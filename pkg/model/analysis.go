package model

import "github.com/aarondl/opt/null"

// LeaderboardRow ranks one vehicle within a replay slice. The
// cumulative time sums real lap times where present and the rolling
// pace where not, so vehicles with patchy timing still get a
// comparable total.
type LeaderboardRow struct {
	VehicleID      string            `json:"vehicleId"`
	LapsDone       int               `json:"lapsDone"`
	EstCumTimeS    float64           `json:"estCumTimeS"`
	CurrentPaceS   null.Val[float64] `json:"currentPaceS"`
	BestLapS       null.Val[float64] `json:"bestLapS"`
	ConsistencyStd null.Val[float64] `json:"consistencyStd"`
}

// RaceSnapshot is the KPI block for one point in a race. A zero
// CurrentLap means the underlying slice was empty and nothing could be
// estimated.
type RaceSnapshot struct {
	VehicleID   string            `json:"vehicleId,omitempty"`
	CurrentLap  int               `json:"currentLap"`
	TotalCars   int               `json:"totalCars"`
	TotalLaps   int               `json:"totalLaps"`
	GapToLeadS  null.Val[float64] `json:"gapToLeadS"`
	FuelL       null.Val[float64] `json:"fuelL"`
	TyreLifePct null.Val[float64] `json:"tyreLifePct"`
	PitLap      null.Val[int]     `json:"pitLap"`
}

// TrendPoint is one lap of a per-lap estimate series.
type TrendPoint struct {
	Lap   int     `json:"lap"`
	Value float64 `json:"value"`
}

// DriverStat summarizes one vehicle's lap times.
type DriverStat struct {
	VehicleID      string            `json:"vehicleId"`
	BestLapS       null.Val[float64] `json:"bestLapS"`
	MeanLapS       null.Val[float64] `json:"meanLapS"`
	Laps           int               `json:"laps"`
	ConsistencyStd null.Val[float64] `json:"consistencyStd"`
}

// PitComparison holds the rolling pace duel between two vehicles. The
// slices share one index: Laps[i] belongs to YouPaceS[i] and so on,
// with NaN marking laps where a side has no usable pace yet.
type PitComparison struct {
	You        string            `json:"you"`
	Rival      string            `json:"rival"`
	Laps       []int             `json:"laps"`
	YouPaceS   []float64         `json:"youPaceS"`
	RivalPaceS []float64         `json:"rivalPaceS"`
	DeltaS     []float64         `json:"deltaS"`
	CumDeltaS  []float64         `json:"cumDeltaS"`
	Last3AvgS  null.Val[float64] `json:"last3AvgS"`
	Suggestion string            `json:"suggestion"`
}

// WeatherPoint pairs one weather reading with the rolling pace of the
// lap it was stretched onto.
type WeatherPoint struct {
	Weather float64 `json:"weather"`
	PaceS   float64 `json:"paceS"`
}

// WeatherImpact correlates a weather metric with one vehicle's pace.
type WeatherImpact struct {
	VehicleID   string            `json:"vehicleId"`
	Metric      string            `json:"metric"`
	Correlation null.Val[float64] `json:"correlation"`
	LatestPaceS null.Val[float64] `json:"latestPaceS"`
	Points      []WeatherPoint    `json:"points"`
}

// CompoundSpec is one row of the static tyre compound reference.
type CompoundSpec struct {
	Compound   string  `json:"compound"`
	LifeLaps   int     `json:"lifeLaps"`
	DeltaS     float64 `json:"deltaS"`
	TempWindow string  `json:"tempWindow"`
}
