package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

func TestPitDeltaUndercut(t *testing.T) {
	records := []model.LapRecord{
		timed("12", 1, 100), timed("44", 1, 100),
		timed("12", 2, 100), timed("44", 2, 100),
		timed("12", 3, 100), timed("44", 3, 100),
		timed("12", 4, 102), timed("44", 4, 100),
	}

	got, err := PitDelta(records, "12", "44", 1)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4}, got.Laps)
	assertSeries(t, []float64{0, 0, 0, 2}, got.DeltaS)
	assertSeries(t, []float64{0, 0, 0, 2}, got.CumDeltaS)
	// last three deltas average 0.67s, above the undercut threshold
	assert.InDelta(t, 2.0/3.0, got.Last3AvgS.GetOrZero(), 0.0001)
	assert.Equal(t, SuggestionUndercut, got.Suggestion)
}

func TestPitDeltaStayOut(t *testing.T) {
	records := []model.LapRecord{
		timed("12", 1, 100), timed("44", 1, 100),
		timed("12", 2, 100), timed("44", 2, 100),
	}

	got, err := PitDelta(records, "12", "44", 1)
	require.NoError(t, err)
	assert.InDelta(t, 0, got.Last3AvgS.GetOrZero(), 0.0001)
	assert.Equal(t, SuggestionStayOut, got.Suggestion)
}

func TestPitDeltaCarriesGapsThrough(t *testing.T) {
	records := []model.LapRecord{
		timed("12", 1, 100), timed("44", 1, 100),
		timed("12", 2, 100), timed("44", 2, 100),
		timed("12", 3, 100), untimed("44", 3),
		timed("12", 4, 103), timed("44", 4, 100),
	}

	got, err := PitDelta(records, "12", "44", 1)
	require.NoError(t, err)

	nan := math.NaN()
	assertSeries(t, []float64{0, 0, nan, 3}, got.DeltaS)
	assertSeries(t, []float64{0, 0, nan, 3}, got.CumDeltaS)
	// the unusable lap is skipped, not counted as zero
	assert.InDelta(t, 1.5, got.Last3AvgS.GetOrZero(), 0.0001)
	assert.Equal(t, SuggestionUndercut, got.Suggestion)
}

func TestPitDeltaAveragesDuplicateLaps(t *testing.T) {
	records := []model.LapRecord{
		timed("12", 1, 100),
		timed("12", 1, 102),
		timed("44", 1, 100),
	}

	got, err := PitDelta(records, "12", "44", 1)
	require.NoError(t, err)
	assertSeries(t, []float64{101}, got.YouPaceS)
	assertSeries(t, []float64{1}, got.DeltaS)
}

func TestPitDeltaSmoothing(t *testing.T) {
	records := []model.LapRecord{
		timed("12", 1, 100), timed("44", 1, 100),
		timed("12", 2, 104), timed("44", 2, 100),
	}

	got, err := PitDelta(records, "12", "44", 2)
	require.NoError(t, err)
	// the rolling mean halves the raw lap-two gap
	assertSeries(t, []float64{100, 102}, got.YouPaceS)
	assertSeries(t, []float64{0, 2}, got.DeltaS)
}

func TestPitDeltaErrors(t *testing.T) {
	records := []model.LapRecord{
		timed("12", 1, 100),
		timed("44", 1, 100),
		untimed("77", 1),
	}

	_, err := PitDelta(records, "12", "12", 5)
	assert.Error(t, err)

	_, err = PitDelta(records, "12", "99", 5)
	assert.Error(t, err)

	// present in the slice but without a single usable time
	_, err = PitDelta(records, "12", "77", 5)
	assert.Error(t, err)

	_, err = PitDelta(nil, "12", "44", 5)
	assert.Error(t, err)
}
