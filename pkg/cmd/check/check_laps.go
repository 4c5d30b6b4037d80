package check

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-core-go/log"
	"github.com/raceiq/raceiq-core-go/pkg/catalog"
	"github.com/raceiq/raceiq-core-go/pkg/config"
	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/processing/laps"
	"github.com/raceiq/raceiq-core-go/pkg/tabular/sqlitesource"
)

// lap times outside this range are flagged as implausible
const (
	minPlausibleLapS = 10.0
	maxPlausibleLapS = 3600.0
)

func NewCheckLapsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "laps race",
		Short: "display reconstructed laps of a race (dev only)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			checkLaps(cmd.Context(), args[0])
		},
	}
	cmd.Flags().BoolVar(&appConfig.PrintSamples,
		"print-samples",
		false,
		"if true, every reconstructed lap is printed")

	return cmd
}

func checkLaps(ctx context.Context, raceArg string) {
	logger := log.GetFromContext(ctx).Named("check")

	cat, err := catalog.Load(config.CatalogFile)
	if err != nil {
		logger.Fatal("could not read catalog", log.ErrorField(err))
	}
	race, ok := cat.Race(raceArg)
	if !ok {
		logger.Fatal("unknown race", log.String("race", raceArg))
	}
	workbook := catalog.ResolvePath(config.DataDir, config.Workbook)
	src, err := sqlitesource.New(workbook)
	if err != nil {
		logger.Fatal("could not open workbook",
			log.String("workbook", workbook), log.ErrorField(err))
	}
	defer src.Close()

	records := laps.New().Build(ctx, src, race)
	logger.Info("got laps",
		log.Int("count", len(records)),
		log.Int("vehicles", len(model.VehicleIDs(records))),
		log.Int("maxLap", model.MaxLap(records)))

	noDuration := 0
	implausible := 0
	for i := range records {
		r := &records[i]
		if r.LapTimeS.IsNull() {
			noDuration++
			continue
		}
		if v := r.LapTimeS.GetOrZero(); v < minPlausibleLapS || v > maxPlausibleLapS {
			implausible++
			logger.Warn("implausible lap time",
				log.String("vehicle", r.VehicleID),
				log.Int("lap", r.Lap),
				log.Float64("seconds", v))
		}
	}
	logger.Info("duration coverage",
		log.Int("withDuration", len(records)-noDuration),
		log.Int("withoutDuration", noDuration),
		log.Int("implausible", implausible))

	if appConfig.PrintSamples {
		for i := range records {
			r := &records[i]
			logger.Info("lap",
				log.String("vehicle", r.VehicleID),
				log.Int("lap", r.Lap),
				log.Any("timeS", r.LapTimeS))
		}
	}
}
