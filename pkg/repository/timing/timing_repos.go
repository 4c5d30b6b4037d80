//nolint:whitespace // can't make both editor and linter happy
package timing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/repository"
)

var selector = `select t.id, t.race, t.source_table, t.kind, t.vehicle_id,
	t.lap, t.ts, t.meta_ts, t.import_run_id from raceiq.timing_event t`

// CopyEvents bulk-loads timing events via the copy protocol.
func CopyEvents(ctx context.Context, tx pgx.Tx, events []*model.TimingEvent) (
	int64, error,
) {
	return tx.CopyFrom(ctx,
		pgx.Identifier{"raceiq", "timing_event"},
		[]string{
			"race", "source_table", "kind", "vehicle_id", "lap",
			"ts", "meta_ts", "import_run_id",
		},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{
				e.Race, e.SourceTable, e.Kind, e.VehicleID, e.Lap,
				e.TS.Ptr(), e.MetaTS.Ptr(), e.ImportRunID,
			}, nil
		}))
}

// DeleteBySourceTable removes a previously transferred table.
func DeleteBySourceTable(
	ctx context.Context,
	conn repository.Querier,
	sourceTable string,
) (int, error) {
	cmdTag, err := conn.Exec(ctx,
		"delete from raceiq.timing_event where source_table=$1", sourceTable)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// SourceTables lists the transferred tables in name order.
func SourceTables(ctx context.Context, conn repository.Querier) ([]string, error) {
	rows, err := conn.Query(ctx,
		"select distinct source_table from raceiq.timing_event order by source_table")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		ret = append(ret, name)
	}
	return ret, rows.Err()
}

// ColumnPresence reports whether a transferred table carries any primary
// or meta timestamps. Used to rebuild the original column layout.
func ColumnPresence(ctx context.Context, conn repository.Querier, sourceTable string) (
	hasTS, hasMetaTS bool, err error,
) {
	row := conn.QueryRow(ctx, `
	select coalesce(bool_or(ts is not null), false),
		coalesce(bool_or(meta_ts is not null), false)
	from raceiq.timing_event where source_table=$1`, sourceTable)
	err = row.Scan(&hasTS, &hasMetaTS)
	return hasTS, hasMetaTS, err
}

func LoadBySourceTable(
	ctx context.Context,
	conn repository.Querier,
	sourceTable string,
) ([]*model.TimingEvent, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where t.source_table=$1 order by t.id asc", selector),
		sourceTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.TimingEvent, 0)
	for rows.Next() {
		item, err := readData(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, rows.Err()
}

func LoadByRace(
	ctx context.Context,
	conn repository.Querier,
	race, kind string,
) ([]*model.TimingEvent, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where t.race=$1 and t.kind=$2 order by t.vehicle_id, t.lap",
			selector),
		race, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.TimingEvent, 0)
	for rows.Next() {
		item, err := readData(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, rows.Err()
}

func readData(row pgx.Row) (*model.TimingEvent, error) {
	var e model.TimingEvent
	if err := row.Scan(
		&e.ID, &e.Race, &e.SourceTable, &e.Kind, &e.VehicleID,
		&e.Lap, &e.TS, &e.MetaTS, &e.ImportRunID,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
