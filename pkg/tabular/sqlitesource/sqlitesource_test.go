package sqlitesource

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-core-go/pkg/tabular"
)

func newTestWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workbook.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`
		CREATE TABLE "R1_barber_lap_end" (vehicle_id TEXT, lap INTEGER, timestamp TEXT);
		CREATE TABLE "26_Weather_Race 1_Anonymized" (time_utc TEXT, ambient_temp DOUBLE);
		INSERT INTO "R1_barber_lap_end" VALUES
			('12', 1, '2025-04-05T14:00:00Z'),
			('12', 2, '2025-04-05T14:01:31Z'),
			('44', 1, '2025-04-05T14:00:02Z');
	`)
	require.NoError(t, err)
	return path
}

func TestNewRequiresExistingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}

func TestTableNames(t *testing.T) {
	src, err := New(newTestWorkbook(t))
	require.NoError(t, err)
	defer src.Close()

	names, err := src.TableNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"26_Weather_Race 1_Anonymized", "R1_barber_lap_end"}, names)
}

func TestReadTable(t *testing.T) {
	src, err := New(newTestWorkbook(t))
	require.NoError(t, err)
	defer src.Close()

	rs, err := src.ReadTable(context.Background(), "R1_barber_lap_end")
	require.NoError(t, err)
	assert.Equal(t, []string{"vehicle_id", "lap", "timestamp"}, rs.Columns)
	require.Len(t, rs.Rows, 3)
	assert.Equal(t, "12", rs.Rows[0][0])
	assert.Equal(t, int64(1), rs.Rows[0][1])
}

func TestReadTableQuotedName(t *testing.T) {
	src, err := New(newTestWorkbook(t))
	require.NoError(t, err)
	defer src.Close()

	rs, err := src.ReadTable(context.Background(), "26_Weather_Race 1_Anonymized")
	require.NoError(t, err)
	assert.Equal(t, []string{"time_utc", "ambient_temp"}, rs.Columns)
	assert.True(t, rs.Empty())
}

func TestReadTableMissing(t *testing.T) {
	src, err := New(newTestWorkbook(t))
	require.NoError(t, err)
	defer src.Close()

	_, err = src.ReadTable(context.Background(), "R9_unknown")
	assert.True(t, errors.Is(err, tabular.ErrTableNotFound))
}
