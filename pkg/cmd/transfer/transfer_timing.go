package transfer

import (
	"context"
	"fmt"

	"github.com/aarondl/opt/null"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-core-go/log"
	"github.com/raceiq/raceiq-core-go/pkg/catalog"
	"github.com/raceiq/raceiq-core-go/pkg/config"
	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/repository/importrun"
	"github.com/raceiq/raceiq-core-go/pkg/repository/timing"
	"github.com/raceiq/raceiq-core-go/pkg/tabular"
	"github.com/raceiq/raceiq-core-go/pkg/tabular/sqlitesource"
)

func NewTransferTimingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timing [race...]",
		Short: "copies the lap tables of the timing workbook into the database",
		Long: `Reads the lap-end and lap-time tables of each race from the timing
workbook and replaces their rows in the timing_event table. Each table
lands in one transaction together with its import run, so readers never
see a half-copied table. Without arguments all races of the catalog are
transferred.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransferTiming(cmd.Context(), args)
		},
	}
	return cmd
}

func runTransferTiming(ctx context.Context, races []string) error {
	setup(ctx)
	defer teardown()

	cat, err := catalog.Load(config.CatalogFile)
	if err != nil {
		return err
	}
	workbook := catalog.ResolvePath(config.DataDir, config.Workbook)
	src, err := sqlitesource.New(workbook)
	if err != nil {
		return fmt.Errorf("opening workbook %s: %w", workbook, err)
	}
	defer src.Close()

	keys := races
	if len(keys) == 0 {
		keys = cat.Keys()
	}
	for _, key := range keys {
		race, ok := cat.Race(key)
		if !ok {
			return fmt.Errorf("unknown race %q", key)
		}
		if err := transferTimingRace(ctx, src, race); err != nil {
			return fmt.Errorf("transfer timing for race %s: %w", race.Key, err)
		}
	}
	return nil
}

func transferTimingRace(
	ctx context.Context,
	src *sqlitesource.Source,
	race *catalog.Race,
) error {
	tables := []struct {
		name string
		kind string
	}{
		{race.LapEndTable, model.KindLapEnd},
		{race.LapTimeTable, model.KindLapTime},
	}
	for _, tbl := range tables {
		if tbl.name == "" {
			continue
		}
		rs, err := src.ReadTable(ctx, tbl.name)
		if err != nil {
			log.Warn("timing table unavailable, skipping",
				log.String("table", tbl.name),
				log.ErrorField(err))
			continue
		}
		events := timingEvents(rs, race.Key, tbl.name, tbl.kind)
		if len(events) == 0 {
			log.Warn("no usable rows, skipping",
				log.String("table", tbl.name))
			continue
		}
		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			run, err := importrun.Create(ctx, tx,
				race.Key, tbl.name, model.ImportKindTiming)
			if err != nil {
				return err
			}
			for i := range events {
				events[i].ImportRunID = run.ID
			}
			if _, err := timing.DeleteBySourceTable(ctx, tx, tbl.name); err != nil {
				return err
			}
			copied, err := timing.CopyEvents(ctx, tx, events)
			if err != nil {
				return err
			}
			return importrun.Finish(ctx, tx, run.ID, copied)
		})
		if err != nil {
			return fmt.Errorf("copying table %s: %w", tbl.name, err)
		}
		log.Info("table transferred",
			log.String("race", race.Key),
			log.String("table", tbl.name),
			log.Int("rows", len(events)))
	}
	return nil
}

// timingEvents converts the raw rows of one timing table. Rows without
// a usable vehicle id or lap number are dropped. Out-of-range laps stay
// in: the archive mirrors the source table, filtering is the job of the
// lap reconstruction.
func timingEvents(
	rs *tabular.RowSet,
	raceKey, table, kind string,
) []*model.TimingEvent {
	idIdx := rs.ColumnIndex(model.ColVehicleID)
	lapIdx := rs.ColumnIndex(model.ColLap)
	if idIdx < 0 || lapIdx < 0 {
		return nil
	}
	tsIdx := rs.ColumnIndex(model.ColTimestamp)
	metaIdx := rs.ColumnIndex(model.ColMetaTime)

	ret := make([]*model.TimingEvent, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		id, ok := tabular.AsString(row[idIdx])
		if !ok {
			continue
		}
		lap, ok := tabular.AsInt(row[lapIdx])
		if !ok {
			continue
		}
		e := &model.TimingEvent{
			Race:        raceKey,
			SourceTable: table,
			Kind:        kind,
			VehicleID:   id,
			Lap:         int(lap),
		}
		if tsIdx >= 0 {
			if ts, tsOk := tabular.AsTime(row[tsIdx]); tsOk {
				e.TS = null.From(ts)
			}
		}
		if metaIdx >= 0 {
			if ts, tsOk := tabular.AsTime(row[metaIdx]); tsOk {
				e.MetaTS = null.From(ts)
			}
		}
		ret = append(ret, e)
	}
	return ret
}
