package aggregate

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-core-go/pkg/catalog"
	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/telemetry"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{Races: []catalog.Race{
		{
			Key:               "T1",
			Name:              "Test 1",
			TelemetryCSV:      "t1.csv",
			TelemetryArtifact: "t1_aggregated.parquet",
		},
		{
			Key:               "T2",
			Name:              "Test 2",
			TelemetryCSV:      "t2.csv",
			TelemetryArtifact: "t2_aggregated.parquet",
		},
	}}
}

func writeRawCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	writeRawCSV(t, dir, "t1.csv", `vehicle_id,lap,telemetry_name,telemetry_value,timestamp
12,1,speed,180,2025-04-05T14:00:00Z
12,1,speed,184,2025-04-05T14:00:10Z
12,1,gear,4,2025-04-05T14:00:00Z
12,2,speed,183,2025-04-05T14:01:35Z
44,1,speed,176,2025-04-05T14:00:02Z
`)

	agg := New(WithCatalog(testCatalog()), WithDataDir(dir))
	result, err := agg.Process(context.Background(), "T1")
	require.NoError(t, err)

	assert.Equal(t, "T1", result.Race)
	assert.Equal(t, "t1.csv", result.Source)
	assert.Equal(t, int64(5), result.RowsIn)
	assert.Equal(t, 3, result.RowsOut)
	assert.Equal(t, 2, result.Channels)
	assert.NotEmpty(t, result.BuildID)
	assert.Positive(t, result.InputBytes)
	assert.Positive(t, result.OutputBytes)

	table, meta, err := telemetry.ReadArtifact(filepath.Join(dir, "t1_aggregated.parquet"))
	require.NoError(t, err)
	assert.Equal(t, result.BuildID, meta.BuildID)
	assert.Equal(t, int64(5), meta.RowsIn)
	assert.Equal(t, []string{"gear", "speed"}, table.Channels)
	require.Len(t, table.Rows, 3)
	assert.InDelta(t, 182, table.Rows[0].Value("speed"), 0.0001)
	assert.InDelta(t, 4, table.Rows[0].Value("gear"), 0.0001)
}

func TestProcessWritesStats(t *testing.T) {
	dir := t.TempDir()
	writeRawCSV(t, dir, "t1.csv", `vehicle_id,lap,telemetry_name,telemetry_value,timestamp
12,1,speed,180,2025-04-05T14:00:00Z
`)

	agg := New(WithCatalog(testCatalog()), WithDataDir(dir))
	result, err := agg.Process(context.Background(), "T1")
	require.NoError(t, err)

	statsPath := filepath.Join(dir, "t1_aggregated.stats.json")
	data, err := os.ReadFile(statsPath)
	require.NoError(t, err)

	var stats Result
	require.NoError(t, oj.Unmarshal(data, &stats))
	assert.Equal(t, result.BuildID, stats.BuildID)
	assert.Equal(t, int64(1), stats.RowsIn)
}

// Chunked aggregation averages the per-chunk means instead of the raw
// values. With values 10, 20 | 30 split at a chunk boundary the result
// is (15+30)/2, not 20.
func TestProcessAveragesChunkMeans(t *testing.T) {
	dir := t.TempDir()
	writeRawCSV(t, dir, "t1.csv", `vehicle_id,lap,telemetry_name,telemetry_value,timestamp
12,1,speed,10,2025-04-05T14:00:00Z
12,1,speed,20,2025-04-05T14:00:01Z
12,1,speed,30,2025-04-05T14:00:02Z
`)

	agg := New(WithCatalog(testCatalog()), WithDataDir(dir), WithChunkSize(2))
	_, err := agg.Process(context.Background(), "T1")
	require.NoError(t, err)

	table, _, err := telemetry.ReadArtifact(filepath.Join(dir, "t1_aggregated.parquet"))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.InDelta(t, 22.5, table.Rows[0].Value("speed"), 0.0001)
}

func TestProcessUnknownRace(t *testing.T) {
	agg := New(WithCatalog(testCatalog()), WithDataDir(t.TempDir()))
	_, err := agg.Process(context.Background(), "R9")
	assert.Error(t, err)
}

func TestProcessAllSkipsMissingInput(t *testing.T) {
	dir := t.TempDir()
	// only T2 has raw data
	writeRawCSV(t, dir, "t2.csv", `vehicle_id,lap,telemetry_name,telemetry_value,timestamp
44,1,speed,170,2025-04-05T15:00:00Z
`)

	agg := New(WithCatalog(testCatalog()), WithDataDir(dir))
	results, err := agg.ProcessAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "T2", results[0].Race)
}

func TestProcessAllAbortsOnBrokenInput(t *testing.T) {
	dir := t.TempDir()
	// a present but header-less file is a hard failure, not a skip
	writeRawCSV(t, dir, "t1.csv", "no,useful,columns\n1,2,3\n")

	agg := New(WithCatalog(testCatalog()), WithDataDir(dir))
	_, err := agg.ProcessAll(context.Background())
	assert.Error(t, err)
}

func TestGroupAggregatorKeepsFirstTimestamp(t *testing.T) {
	first := time.Date(2025, 4, 5, 14, 0, 0, 0, time.UTC)
	later := first.Add(time.Minute)

	g := newGroupAggregator()
	// the first chunk carries no usable timestamp for the group
	g.addChunk([]model.Sample{
		{VehicleID: "12", Lap: 1, Name: "speed", Value: 10},
	})
	g.addChunk([]model.Sample{
		{VehicleID: "12", Lap: 1, Name: "speed", Value: 20, Timestamp: first},
		{VehicleID: "12", Lap: 1, Name: "speed", Value: 30, Timestamp: later},
	})

	out := g.finish()
	require.Len(t, out, 1)
	assert.Equal(t, first, out[0].Timestamp)
	// chunk means 10 and 25, averaged
	assert.InDelta(t, 17.5, out[0].Value, 0.0001)
}

func TestGroupAggregatorNaNOnlyGroup(t *testing.T) {
	ts := time.Date(2025, 4, 5, 14, 0, 0, 0, time.UTC)

	g := newGroupAggregator()
	g.addChunk([]model.Sample{
		{VehicleID: "12", Lap: 1, Name: "aps", Value: math.NaN(), Timestamp: ts},
		{VehicleID: "12", Lap: 1, Name: "speed", Value: 100, Timestamp: ts},
	})

	out := g.finish()
	require.Len(t, out, 2)
	assert.Equal(t, "aps", out[0].Name)
	assert.True(t, math.IsNaN(out[0].Value))
	assert.Equal(t, ts, out[0].Timestamp)
}

func TestGroupAggregatorOrdersByKey(t *testing.T) {
	g := newGroupAggregator()
	g.addChunk([]model.Sample{
		{VehicleID: "44", Lap: 1, Name: "speed", Value: 1},
		{VehicleID: "12", Lap: 2, Name: "speed", Value: 2},
		{VehicleID: "12", Lap: 1, Name: "speed", Value: 3},
	})

	out := g.finish()
	got := make([]string, 0, len(out))
	for _, s := range out {
		got = append(got, fmt.Sprintf("%s/%d", s.VehicleID, s.Lap))
	}
	assert.Equal(t, []string{"12/1", "12/2", "44/1"}, got)
}
