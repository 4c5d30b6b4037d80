package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-core-go/log"
	"github.com/raceiq/raceiq-core-go/pkg/analysis"
	"github.com/raceiq/raceiq-core-go/pkg/catalog"
	"github.com/raceiq/raceiq-core-go/pkg/config"
	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/processing/laps"
	"github.com/raceiq/raceiq-core-go/pkg/tabular"
	"github.com/raceiq/raceiq-core-go/pkg/tabular/sqlitesource"
	"github.com/raceiq/raceiq-core-go/pkg/telemetry"
)

func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [race...]",
		Short: "renders a static HTML analysis report per race",
		Long: `Builds the lap records and telemetry metrics of each race and
renders them into a static HTML report: leaderboard, driver statistics,
lap time and pace trends, fuel and tyre projections and the weather
correlation. Without arguments every race of the catalog is rendered.
Races without data still produce a report showing the no-data state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), args)
		},
	}
	cmd.Flags().StringVar(&config.ReportDir,
		"report-dir",
		"reports",
		"directory receiving the generated reports")
	cmd.Flags().BoolVar(&config.UseAggregated,
		"use-aggregated",
		true,
		"prefer the aggregated artifact over raw telemetry")
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() *log.Logger {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	switch config.LogFormat {
	case "json":
		return log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			opts...)
	default:
		return log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			opts...)
	}
}

func runReport(ctx context.Context, races []string) error {
	logger := setupLogger()
	log.ResetDefault(logger)
	ctx = log.AddToContext(ctx, logger)

	cat, err := catalog.Load(config.CatalogFile)
	if err != nil {
		return err
	}

	var src tabular.Source
	workbook := catalog.ResolvePath(config.DataDir, config.Workbook)
	if s, wbErr := sqlitesource.New(workbook); wbErr != nil {
		log.Warn("timing workbook not available, lap data will be empty",
			log.String("workbook", workbook), log.ErrorField(wbErr))
	} else {
		src = s
		defer s.Close()
	}

	loader := telemetry.NewLoader(
		telemetry.WithCatalog(cat),
		telemetry.WithDataDir(config.DataDir),
		telemetry.WithPreferAggregated(config.UseAggregated),
		telemetry.WithLogger(logger.Named("telemetry")),
	)
	proc := laps.New()

	keys := races
	if len(keys) == 0 {
		keys = cat.Keys()
	}
	for _, key := range keys {
		race, ok := cat.Race(key)
		if !ok {
			return fmt.Errorf("unknown race %q", key)
		}
		if err := buildRaceReport(ctx, src, loader, proc, race); err != nil {
			return fmt.Errorf("report for race %s: %w", race.Key, err)
		}
	}
	return nil
}

// raceData is everything one report page is rendered from.
type raceData struct {
	race    *catalog.Race
	records []model.LapRecord
	metrics model.MetricSeries
	weather *tabular.RowSet

	snapshot  model.RaceSnapshot
	board     []model.LeaderboardRow
	stats     []model.DriverStat
	fuel      []model.TrendPoint
	tyre      []model.TrendPoint
	impact    *model.WeatherImpact
	compounds []model.CompoundSpec
}

//nolint:whitespace // can't make both editor and linter happy
func collectRaceData(
	ctx context.Context,
	src tabular.Source,
	loader *telemetry.Loader,
	proc *laps.Processor,
	race *catalog.Race,
) *raceData {
	ret := &raceData{race: race}
	if src != nil {
		ret.records = proc.Build(ctx, src, race)
		if rs, err := src.ReadTable(ctx, race.WeatherTable); err == nil {
			ret.weather = rs
		}
	}

	data := loader.Load(ctx, race.Key)
	if !data.Empty() {
		ret.metrics, _ = telemetry.Extract(data, telemetry.Filter{})
	}

	ret.snapshot = analysis.Snapshot(
		ret.records, ret.records, "", model.MaxLap(ret.records), ret.metrics)
	ret.board = analysis.Leaderboard(ret.records, analysis.DefaultPaceWindow)
	ret.stats = analysis.DriverStats(ret.records)
	ret.fuel = analysis.FuelTrend(ret.records, ret.metrics)
	ret.tyre = analysis.TyreTrend(ret.records, ret.metrics)
	ret.compounds = analysis.CompoundReference()
	if impact, err := analysis.WeatherCorrelation(
		ret.records, ret.weather, "", ""); err == nil {
		ret.impact = impact
	}
	return ret
}

//nolint:whitespace // can't make both editor and linter happy
func buildRaceReport(
	ctx context.Context,
	src tabular.Source,
	loader *telemetry.Loader,
	proc *laps.Processor,
	race *catalog.Race,
) error {
	logger := log.GetFromContext(ctx).Named("report")
	start := time.Now()

	outDir := filepath.Join(config.ReportDir, race.Key)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	data := collectRaceData(ctx, src, loader, proc, race)
	charts := buildCharts(data)
	for _, c := range charts {
		if err := writeChart(filepath.Join(outDir, c.File), c.chart); err != nil {
			return err
		}
	}
	if err := writeIndex(filepath.Join(outDir, "index.html"), data, charts); err != nil {
		return err
	}

	logger.Info("report written",
		log.String("race", race.Key),
		log.String("dir", outDir),
		log.Int("vehicles", len(data.stats)),
		log.Duration("duration", time.Since(start)))
	return nil
}
