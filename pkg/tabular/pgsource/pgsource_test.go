package pgsource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-core-go/pkg/tabular"
	"github.com/raceiq/raceiq-core-go/testsupport/basedata"
	"github.com/raceiq/raceiq-core-go/testsupport/testdb"
)

func TestTableNames(t *testing.T) {
	pool := testdb.InitTestDB()
	basedata.CreateSampleTimingData(pool)
	src := New(pool)

	names, err := src.TableNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{basedata.SampleLapTimeTable}, names)
}

func TestReadTableRebuildsLayout(t *testing.T) {
	pool := testdb.InitTestDB()
	basedata.CreateSampleTimingData(pool)
	src := New(pool)

	rs, err := src.ReadTable(context.Background(), basedata.SampleLapTimeTable)
	require.NoError(t, err)
	// meta_time never transferred, so the column does not reappear
	assert.Equal(t, []string{"vehicle_id", "lap", "timestamp"}, rs.Columns)
	require.Len(t, rs.Rows, 6)
	assert.Equal(t, "12", rs.Rows[0][0])
	assert.Equal(t, 1, rs.Rows[0][1])
	_, isTime := rs.Rows[0][2].(time.Time)
	assert.True(t, isTime)
}

func TestReadTableMissing(t *testing.T) {
	pool := testdb.InitTestDB()
	basedata.CreateSampleTimingData(pool)
	src := New(pool)

	_, err := src.ReadTable(context.Background(), "R9_unknown")
	assert.True(t, errors.Is(err, tabular.ErrTableNotFound))
}
