package aggregate

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/raceiq/raceiq-core-go/log"
	"github.com/raceiq/raceiq-core-go/pkg/catalog"
	"github.com/raceiq/raceiq-core-go/pkg/config"
	"github.com/raceiq/raceiq-core-go/pkg/processing/aggregate"
	"github.com/raceiq/raceiq-core-go/pkg/telemetry"
)

// changes to a raw input settle this long before re-aggregation kicks
// in; large exports arrive as a burst of write events
const settleDelay = 2 * time.Second

func NewAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate [race...]",
		Short: "aggregates raw telemetry exports into parquet artifacts",
		Long: `Reads the raw long-format telemetry CSV of each race in chunks,
averages every (vehicle, lap, channel) group and publishes the result
as a wide parquet artifact next to the input. Without arguments every
race of the catalog is processed; races without raw input are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(cmd.Context(), args)
		},
	}
	cmd.Flags().IntVar(&config.ChunkSize,
		"chunk-size",
		telemetry.DefaultChunkSize,
		"rows per chunk when reading raw telemetry")
	cmd.Flags().BoolVar(&config.WatchInput,
		"watch",
		false,
		"stay running and re-aggregate a race when its raw input changes")
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format")
	cmd.Flags().StringVar(&config.LogConfig,
		"log-config",
		"",
		"file containing namespace filter rules for the logger")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
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
	if config.LogConfig != "" {
		if rules, err := os.ReadFile(config.LogConfig); err == nil {
			opts = append(opts, log.WithFilters(string(rules)))
		}
	}
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

func runAggregate(ctx context.Context, races []string) error {
	logger := setupLogger()
	log.ResetDefault(logger)
	ctx = log.AddToContext(ctx, logger)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port",
			log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	var telm *config.Telemetry
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telm, err = config.SetupTelemetry(ctx); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(
			otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}
	defer func() {
		if telm != nil {
			telm.Shutdown()
		}
	}()

	cat, err := catalog.Load(config.CatalogFile)
	if err != nil {
		return err
	}
	agg := aggregate.New(
		aggregate.WithCatalog(cat),
		aggregate.WithDataDir(config.DataDir),
		aggregate.WithChunkSize(config.ChunkSize),
		aggregate.WithLogger(logger.Named("aggregate")),
	)

	if len(races) == 0 {
		if _, err := agg.ProcessAll(ctx); err != nil {
			return err
		}
	} else {
		for _, race := range races {
			if _, err := agg.Process(ctx, race); err != nil {
				return err
			}
		}
	}

	if config.WatchInput {
		return watchAndReaggregate(ctx, cat, agg)
	}
	return nil
}

// watchAndReaggregate blocks until interrupted, re-running the
// aggregation of a race whenever its raw input settles after a change.
// Failures are logged and do not terminate the watch.
//
//nolint:funlen,gocognit,cyclop // event loop reads best in one piece
func watchAndReaggregate(
	ctx context.Context,
	cat *catalog.Catalog,
	agg *aggregate.Aggregator,
) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	byFile := make(map[string]string) // input path -> race key
	dirs := make(map[string]struct{})
	for i := range cat.Races {
		race := &cat.Races[i]
		if race.TelemetryCSV == "" {
			continue
		}
		input := filepath.Clean(catalog.ResolvePath(config.DataDir, race.TelemetryCSV))
		byFile[input] = race.Key
		dirs[filepath.Dir(input)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("could not watch %s: %w", dir, err)
		}
		log.Info("watching for raw telemetry changes", log.String("dir", dir))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pending := make(map[string]struct{})
	settle := time.NewTimer(settleDelay)
	if !settle.Stop() {
		<-settle.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Info("watch terminated")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			race, ok := byFile[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			log.Debug("change detected",
				log.String("file", event.Name), log.Any("event", event))
			pending[race] = struct{}{}
			settle.Reset(settleDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", log.ErrorField(err))
		case <-settle.C:
			for race := range pending {
				log.Info("raw input changed, re-aggregating",
					log.String("race", race))
				if _, err := agg.Process(ctx, race); err != nil {
					log.Error("re-aggregation failed",
						log.String("race", race), log.ErrorField(err))
				}
				delete(pending, race)
			}
		}
	}
}
