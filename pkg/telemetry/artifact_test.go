package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

func sampleWideTable() *model.WideTable {
	return &model.WideTable{
		Channels: []string{"gear", "speed"},
		Rows: []model.WideRow{
			{
				VehicleID: "12", Lap: 1,
				Values: map[string]float64{"gear": 4, "speed": 181.25},
			},
			{
				VehicleID: "12", Lap: 2,
				Values: map[string]float64{"speed": 183.5},
			},
			{
				VehicleID: "44", Lap: 1,
				Values: map[string]float64{"gear": 3, "speed": 179.0},
			},
		},
	}
}

func TestArtifactRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agg.parquet")
	builtAt := time.Date(2025, 4, 6, 9, 30, 0, 0, time.UTC)
	err := WriteArtifact(path, sampleWideTable(), ArtifactMeta{
		BuildID: "0f0e9a4c",
		Source:  "R1_barber_telemetry_data.csv",
		RowsIn:  600000,
		RowsOut: 3,
		BuiltAt: builtAt,
	})
	require.NoError(t, err)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	table, meta, err := ReadArtifact(path)
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, meta.SchemaVersion)
	assert.Equal(t, "0f0e9a4c", meta.BuildID)
	assert.Equal(t, "R1_barber_telemetry_data.csv", meta.Source)
	assert.Equal(t, int64(600000), meta.RowsIn)
	assert.Equal(t, int64(3), meta.RowsOut)
	assert.Equal(t, builtAt, meta.BuiltAt)

	assert.Equal(t, []string{"gear", "speed"}, table.Channels)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "12", table.Rows[0].VehicleID)
	assert.Equal(t, 1, table.Rows[0].Lap)
	assert.InDelta(t, 181.25, table.Rows[0].Value("speed"), 0.0001)
	assert.InDelta(t, 4, table.Rows[0].Value("gear"), 0.0001)
	// the hole in row 2 comes back as NaN
	assert.True(t, math.IsNaN(table.Rows[1].Value("gear")))
	assert.InDelta(t, 183.5, table.Rows[1].Value("speed"), 0.0001)
	assert.Equal(t, "44", table.Rows[2].VehicleID)
}

func TestWriteArtifactEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteArtifact(path, &model.WideTable{}, ArtifactMeta{}))

	table, meta, err := ReadArtifact(path)
	require.NoError(t, err)
	assert.True(t, table.Empty())
	assert.Empty(t, table.Channels)
	assert.Equal(t, SchemaVersion, meta.SchemaVersion)
	assert.False(t, meta.BuiltAt.IsZero())
}

func TestReadArtifactRejectsForeignVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.parquet")
	require.NoError(t, WriteArtifact(path, sampleWideTable(), ArtifactMeta{
		SchemaVersion: "v2.0.0",
	}))

	_, meta, err := ReadArtifact(path)
	assert.Error(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "v2.0.0", meta.SchemaVersion)
}

func TestReadArtifactGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.parquet")
	require.NoError(t, os.WriteFile(path, []byte("definitely not parquet"), 0o644))

	_, _, err := ReadArtifact(path)
	assert.Error(t, err)
}

func TestReadArtifactMissing(t *testing.T) {
	_, _, err := ReadArtifact(filepath.Join(t.TempDir(), "nope.parquet"))
	assert.Error(t, err)
}

func TestSchemaCompatible(t *testing.T) {
	tests := []struct {
		version  string
		expected bool
	}{
		{"v1.0.0", true},
		{"v1.4.2", true},
		{"v2.0.0", false},
		{"1.0.0", false},
		{"", false},
		{"latest", false},
	}
	for _, tt := range tests {
		t.Run("version "+tt.version, func(t *testing.T) {
			assert.Equal(t, tt.expected, SchemaCompatible(tt.version))
		})
	}
}
