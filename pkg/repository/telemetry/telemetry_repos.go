//nolint:whitespace // can't make both editor and linter happy
package telemetry

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"

	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/repository"
)

// SampleFilter narrows LoadSamples. Zero values leave a dimension
// unfiltered; laps start at 1, so 0 works as "unbounded".
type SampleFilter struct {
	Race      string
	VehicleID string
	FromLap   int
	ToLap     int
}

// CopySamples bulk-loads telemetry samples via the copy protocol.
func CopySamples(ctx context.Context, tx pgx.Tx, samples []*model.DbSample) (
	int64, error,
) {
	return tx.CopyFrom(ctx,
		pgx.Identifier{"raceiq", "telemetry_sample"},
		[]string{"race", "vehicle_id", "lap", "name", "value", "ts", "import_run_id"},
		pgx.CopyFromSlice(len(samples), func(i int) ([]any, error) {
			s := samples[i]
			return []any{
				s.Race, s.VehicleID, s.Lap, s.Name,
				s.Value, s.TS.Ptr(), s.ImportRunID,
			}, nil
		}))
}

func DeleteByRace(ctx context.Context, conn repository.Querier, race string) (
	int, error,
) {
	cmdTag, err := conn.Exec(ctx,
		"delete from raceiq.telemetry_sample where race=$1", race)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func CountByRace(ctx context.Context, conn repository.Querier, race string) (
	int64, error,
) {
	var n int64
	err := conn.QueryRow(ctx,
		"select count(*) from raceiq.telemetry_sample where race=$1", race).Scan(&n)
	return n, err
}

// LoadSamples reads samples matching the filter ordered by vehicle, lap
// and insertion order.
func LoadSamples(ctx context.Context, db bob.Executor, filter SampleFilter) (
	[]*model.DbSample, error,
) {
	q := psql.Select(
		sm.Columns(
			"id", "race", "vehicle_id", "lap", "name",
			"value", "ts", "import_run_id",
		),
		sm.From(psql.Quote("raceiq", "telemetry_sample")),
		sm.Where(psql.Quote("race").EQ(psql.Arg(filter.Race))),
		sm.OrderBy("vehicle_id"),
		sm.OrderBy("lap"),
		sm.OrderBy("id"),
	)
	if filter.VehicleID != "" {
		q.Apply(sm.Where(psql.Quote("vehicle_id").EQ(psql.Arg(filter.VehicleID))))
	}
	if filter.FromLap > 0 {
		q.Apply(sm.Where(psql.Quote("lap").GTE(psql.Arg(filter.FromLap))))
	}
	if filter.ToLap > 0 {
		q.Apply(sm.Where(psql.Quote("lap").LTE(psql.Arg(filter.ToLap))))
	}
	return bob.All(ctx, db, q, scan.StructMapper[*model.DbSample]())
}
