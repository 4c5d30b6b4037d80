package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-core-go/log"
	"github.com/raceiq/raceiq-core-go/pkg/catalog"
	"github.com/raceiq/raceiq-core-go/pkg/config"
	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/repository/importrun"
	telemetryrepo "github.com/raceiq/raceiq-core-go/pkg/repository/telemetry"
	"github.com/raceiq/raceiq-core-go/pkg/telemetry"
)

func NewTransferTelemetryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telemetry [race...]",
		Short: "copies the raw telemetry of a race into the database",
		Long: `Streams the long-format telemetry CSV of each race chunk by chunk
into the telemetry_sample table. The whole file lands in one transaction
together with its import run; a race whose raw input is missing is
skipped with a warning. Without arguments all races of the catalog are
transferred.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransferTelemetry(cmd.Context(), args)
		},
	}
	cmd.Flags().IntVar(&config.ChunkSize,
		"chunk-size",
		telemetry.DefaultChunkSize,
		"number of raw rows read per chunk")
	return cmd
}

func runTransferTelemetry(ctx context.Context, races []string) error {
	setup(ctx)
	defer teardown()

	cat, err := catalog.Load(config.CatalogFile)
	if err != nil {
		return err
	}
	keys := races
	if len(keys) == 0 {
		keys = cat.Keys()
	}
	for _, key := range keys {
		race, ok := cat.Race(key)
		if !ok {
			return fmt.Errorf("unknown race %q", key)
		}
		if err := transferTelemetryRace(ctx, race); err != nil {
			return fmt.Errorf("transfer telemetry for race %s: %w", race.Key, err)
		}
	}
	return nil
}

func transferTelemetryRace(ctx context.Context, race *catalog.Race) error {
	if race.TelemetryCSV == "" {
		log.Warn("no raw telemetry configured, skipping",
			log.String("race", race.Key))
		return nil
	}
	input := catalog.ResolvePath(config.DataDir, race.TelemetryCSV)
	reader, err := telemetry.OpenCSV(input, config.ChunkSize)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("raw telemetry missing, skipping",
				log.String("race", race.Key),
				log.String("file", input))
			return nil
		}
		return err
	}
	defer reader.Close()

	var total int64
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		run, err := importrun.Create(ctx, tx,
			race.Key, race.TelemetryCSV, model.ImportKindTelemetry)
		if err != nil {
			return err
		}
		if _, err := telemetryrepo.DeleteByRace(ctx, tx, race.Key); err != nil {
			return err
		}
		for {
			samples, err := reader.ReadChunk()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			copied, err := telemetryrepo.CopySamples(ctx, tx,
				dbSamples(samples, race.Key, run.ID))
			if err != nil {
				return err
			}
			total += copied
		}
		return importrun.Finish(ctx, tx, run.ID, total)
	})
	if err != nil {
		return err
	}
	log.Info("telemetry transferred",
		log.String("race", race.Key),
		log.Int64("rows", total))
	return nil
}

// dbSamples converts one chunk for the copy protocol. NaN and infinite
// readings become SQL nulls, zero timestamps too.
func dbSamples(
	samples []model.Sample,
	raceKey string,
	runID uuid.UUID,
) []*model.DbSample {
	ret := make([]*model.DbSample, 0, len(samples))
	for i := range samples {
		s := &samples[i]
		row := &model.DbSample{
			Race:        raceKey,
			VehicleID:   s.VehicleID,
			Lap:         s.Lap,
			Name:        s.Name,
			ImportRunID: runID,
		}
		if !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0) {
			row.Value = decimal.NewNullDecimal(decimal.NewFromFloat(s.Value))
		}
		if !s.Timestamp.IsZero() {
			row.TS = null.From(s.Timestamp)
		}
		ret = append(ret, row)
	}
	return ret
}
