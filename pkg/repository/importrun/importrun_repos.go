//nolint:whitespace // can't make both editor and linter happy
package importrun

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/repository"
)

var selector = `select r.id, r.race, r.source, r.kind, r.rows_copied,
	r.started_at, r.finished_at from raceiq.import_run r`

// Create opens a new import run. The id is generated client side.
func Create(
	ctx context.Context,
	conn repository.Querier,
	race, source, kind string,
) (*model.ImportRun, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	_, err = conn.Exec(ctx, `
	insert into raceiq.import_run (
		id, race, source, kind
	) values ($1,$2,$3,$4)
		`,
		id, race, source, kind,
	)
	if err != nil {
		return nil, err
	}
	return LoadByID(ctx, conn, id)
}

// Finish marks a run complete and records how many rows it copied.
func Finish(
	ctx context.Context,
	conn repository.Querier,
	id uuid.UUID,
	rowsCopied int64,
) error {
	_, err := conn.Exec(ctx, `
	update raceiq.import_run set rows_copied=$2, finished_at=now() where id=$1`,
		id, rowsCopied)
	return err
}

func LoadByID(ctx context.Context, conn repository.Querier, id uuid.UUID) (
	*model.ImportRun, error,
) {
	row := conn.QueryRow(ctx, fmt.Sprintf("%s where r.id=$1", selector), id)
	return readData(row)
}

func LoadLatest(ctx context.Context, conn repository.Querier, race, kind string) (
	*model.ImportRun, error,
) {
	row := conn.QueryRow(ctx,
		fmt.Sprintf("%s where r.race=$1 and r.kind=$2 order by r.started_at desc limit 1",
			selector),
		race, kind)
	return readData(row)
}

func LoadByRace(ctx context.Context, conn repository.Querier, race string) (
	[]*model.ImportRun, error,
) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where r.race=$1 order by r.started_at asc", selector), race)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.ImportRun, 0)
	for rows.Next() {
		item, err := readData(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, rows.Err()
}

func readData(row pgx.Row) (*model.ImportRun, error) {
	var run model.ImportRun
	if err := row.Scan(
		&run.ID, &run.Race, &run.Source, &run.Kind,
		&run.RowsCopied, &run.StartedAt, &run.FinishedAt,
	); err != nil {
		return nil, err
	}
	return &run, nil
}
