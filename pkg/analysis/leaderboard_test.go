package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

func TestLeaderboard(t *testing.T) {
	records := []model.LapRecord{
		untimed("12", 1),
		timed("12", 2, 95),
		timed("12", 3, 93),
		untimed("44", 1),
		timed("44", 2, 91),
		timed("44", 3, 92),
	}

	rows := Leaderboard(records, 3)
	require.Len(t, rows, 2)

	// 44 leads on cumulative time
	assert.Equal(t, "44", rows[0].VehicleID)
	assert.Equal(t, 3, rows[0].LapsDone)
	assert.InDelta(t, 183, rows[0].EstCumTimeS, 0.0001)
	assert.InDelta(t, 91.5, rows[0].CurrentPaceS.GetOrZero(), 0.0001)
	assert.InDelta(t, 91, rows[0].BestLapS.GetOrZero(), 0.0001)

	assert.Equal(t, "12", rows[1].VehicleID)
	assert.InDelta(t, 188, rows[1].EstCumTimeS, 0.0001)
	// too few laps for a consistency score
	assert.True(t, rows[1].ConsistencyStd.IsNull())
}

func TestLeaderboardFillsMissingTimesFromPace(t *testing.T) {
	records := []model.LapRecord{
		timed("12", 1, 90),
		timed("12", 2, 92),
		untimed("12", 3),
	}

	rows := Leaderboard(records, 2)
	require.Len(t, rows, 1)
	// lap 3 borrows the rolling pace of 92 instead of dropping out
	assert.InDelta(t, 274, rows[0].EstCumTimeS, 0.0001)
	assert.InDelta(t, 92, rows[0].CurrentPaceS.GetOrZero(), 0.0001)
}

func TestLeaderboardConsistency(t *testing.T) {
	records := []model.LapRecord{
		timed("12", 1, 90),
		timed("12", 2, 92),
		timed("12", 3, 91),
		timed("12", 4, 95),
		timed("12", 5, 89),
		timed("12", 6, 93),
		timed("12", 7, 94),
	}

	rows := Leaderboard(records, 5)
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0].LapsDone)
	assert.InDelta(t, 644, rows[0].EstCumTimeS, 0.0001)
	assert.InDelta(t, 92.4, rows[0].CurrentPaceS.GetOrZero(), 0.0001)
	assert.InDelta(t, 89, rows[0].BestLapS.GetOrZero(), 0.0001)
	assert.InDelta(t, 2.2239, rows[0].ConsistencyStd.GetOrZero(), 0.0001)
}

func TestLeaderboardVehicleWithoutTimesRanksOnZero(t *testing.T) {
	records := []model.LapRecord{
		timed("12", 1, 90),
		untimed("77", 1),
	}

	rows := Leaderboard(records, 0)
	require.Len(t, rows, 2)
	// an empty total sums to zero, which sorts first
	assert.Equal(t, "77", rows[0].VehicleID)
	assert.InDelta(t, 0, rows[0].EstCumTimeS, 0.0001)
	assert.True(t, rows[0].CurrentPaceS.IsNull())
	assert.True(t, rows[0].BestLapS.IsNull())
}

func TestLeaderboardEmpty(t *testing.T) {
	assert.Empty(t, Leaderboard(nil, 5))
}
