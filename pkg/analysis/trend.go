package analysis

import "github.com/raceiq/raceiq-core-go/pkg/model"

// FuelTrend projects the fuel estimate across the laps of a replay
// slice. Per-lap throttle means drive the burn factor; laps the
// telemetry never saw assume mid-scale usage. A nil metrics map means
// telemetry was not available at all and the series degrades to the
// bare decay line, which is not clamped so the slope stays visible.
func FuelTrend(records []model.LapRecord, metrics model.MetricSeries) []model.TrendPoint {
	laps := distinctLaps(records, 0)
	if len(laps) == 0 {
		return nil
	}
	ret := make([]model.TrendPoint, 0, len(laps))
	if metrics == nil {
		for _, lap := range laps {
			ret = append(ret, model.TrendPoint{
				Lap:   lap,
				Value: tankSizeL - float64(lap)*fuelBurnPerLap,
			})
		}
		return ret
	}
	usage := metrics[model.MetricFuelUsage]
	for _, lap := range laps {
		u := defaultUsage
		if usage.HasLap(lap) {
			u = usage.LapMean(lap)
		}
		ret = append(ret, model.TrendPoint{
			Lap:   lap,
			Value: clampZero(tankSizeL - float64(lap)*fuelBurnPerLap*u/100),
		})
	}
	return ret
}

// TyreTrend projects tyre life across the laps of a replay slice the
// same way FuelTrend does, with brake usage raising the wear factor
// above its baseline.
func TyreTrend(records []model.LapRecord, metrics model.MetricSeries) []model.TrendPoint {
	laps := distinctLaps(records, 0)
	if len(laps) == 0 {
		return nil
	}
	ret := make([]model.TrendPoint, 0, len(laps))
	if metrics == nil {
		for _, lap := range laps {
			ret = append(ret, model.TrendPoint{
				Lap:   lap,
				Value: 100 - float64(lap)*tyreWearPerLap,
			})
		}
		return ret
	}
	usage := metrics[model.MetricBrakeUsage]
	for _, lap := range laps {
		u := defaultUsage
		if usage.HasLap(lap) {
			u = usage.LapMean(lap)
		}
		factor := 1 + u/200
		ret = append(ret, model.TrendPoint{
			Lap:   lap,
			Value: clampZero(100 - float64(lap)*tyreWearPerLap*factor),
		})
	}
	return ret
}
