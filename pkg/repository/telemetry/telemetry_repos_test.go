package telemetry

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stephenafamo/bob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-core-go/testsupport/basedata"
	"github.com/raceiq/raceiq-core-go/testsupport/testdb"
)

func TestCopyAndCount(t *testing.T) {
	pool := testdb.InitTestDB()
	ctx := context.Background()
	run := basedata.CreateSampleTelemetryData(pool)
	assert.Equal(t, int64(6), run.RowsCopied)

	n, err := CountByRace(ctx, pool, basedata.SampleRace)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

//nolint:funlen // ok for test code
func TestLoadSamples(t *testing.T) {
	pool := testdb.InitTestDB()
	ctx := context.Background()
	basedata.CreateSampleTelemetryData(pool)
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))

	tests := []struct {
		name   string
		filter SampleFilter
		want   int
	}{
		{
			name:   "race only",
			filter: SampleFilter{Race: basedata.SampleRace},
			want:   6,
		},
		{
			name:   "vehicle",
			filter: SampleFilter{Race: basedata.SampleRace, VehicleID: "12"},
			want:   6,
		},
		{
			name:   "unknown vehicle",
			filter: SampleFilter{Race: basedata.SampleRace, VehicleID: "99"},
			want:   0,
		},
		{
			name:   "from lap",
			filter: SampleFilter{Race: basedata.SampleRace, FromLap: 2},
			want:   3,
		},
		{
			name:   "to lap",
			filter: SampleFilter{Race: basedata.SampleRace, ToLap: 1},
			want:   3,
		},
		{
			name:   "empty range",
			filter: SampleFilter{Race: basedata.SampleRace, FromLap: 3, ToLap: 2},
			want:   0,
		},
		{
			name:   "other race",
			filter: SampleFilter{Race: "R2"},
			want:   0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LoadSamples(ctx, db, tc.filter)
			require.NoError(t, err)
			assert.Len(t, got, tc.want)
		})
	}
}

func TestLoadSamplesValues(t *testing.T) {
	pool := testdb.InitTestDB()
	ctx := context.Background()
	basedata.CreateSampleTelemetryData(pool)
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))

	got, err := LoadSamples(ctx, db,
		SampleFilter{Race: basedata.SampleRace, ToLap: 1})
	require.NoError(t, err)
	require.Len(t, got, 3)
	// insertion order within a lap: speed, gear, nmot
	assert.Equal(t, "speed", got[0].Name)
	require.True(t, got[0].Value.Valid)
	assert.InDelta(t, 182.5, got[0].Value.Decimal.InexactFloat64(), 1e-9)
	assert.False(t, got[0].TS.IsNull())
}

func TestDeleteByRace(t *testing.T) {
	pool := testdb.InitTestDB()
	ctx := context.Background()
	basedata.CreateSampleTelemetryData(pool)

	n, err := DeleteByRace(ctx, pool, basedata.SampleRace)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	count, err := CountByRace(ctx, pool, basedata.SampleRace)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
