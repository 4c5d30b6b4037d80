package check

import (
	"context"
	"os"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-core-go/log"
	"github.com/raceiq/raceiq-core-go/pkg/catalog"
	"github.com/raceiq/raceiq-core-go/pkg/config"
	"github.com/raceiq/raceiq-core-go/pkg/processing/aggregate"
	"github.com/raceiq/raceiq-core-go/pkg/telemetry"
)

func NewCheckArtifactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact race",
		Short: "verifies the aggregated artifact of a race",
		Long: `Reads the aggregated artifact of a race back and verifies its footer
metadata, the uniqueness of the (vehicle, lap) keys and the stats file
published next to it.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			checkArtifact(cmd.Context(), args[0])
		},
	}

	return cmd
}

//nolint:funlen // ok here
func checkArtifact(ctx context.Context, raceArg string) {
	logger := log.GetFromContext(ctx).Named("check")

	cat, err := catalog.Load(config.CatalogFile)
	if err != nil {
		logger.Fatal("could not read catalog", log.ErrorField(err))
	}
	race, ok := cat.Race(raceArg)
	if !ok {
		logger.Fatal("unknown race", log.String("race", raceArg))
	}
	if race.TelemetryArtifact == "" {
		logger.Fatal("race has no artifact configured",
			log.String("race", race.Key))
	}
	path := catalog.ResolvePath(config.DataDir, race.TelemetryArtifact)
	// an incompatible schema version already fails the read
	table, meta, err := telemetry.ReadArtifact(path)
	if err != nil {
		logger.Fatal("could not read artifact",
			log.String("artifact", path), log.ErrorField(err))
	}

	issues := 0
	if meta.BuildID == "" {
		logger.Error("artifact carries no build id")
		issues++
	}
	if meta.RowsOut != int64(len(table.Rows)) {
		logger.Error("row count differs from footer",
			log.Int64("footer", meta.RowsOut),
			log.Int("rows", len(table.Rows)))
		issues++
	}

	type rowKey struct {
		vehicleID string
		lap       int
	}
	seen := make(map[rowKey]int, len(table.Rows))
	for i := range table.Rows {
		k := rowKey{table.Rows[i].VehicleID, table.Rows[i].Lap}
		seen[k]++
		if seen[k] == 2 {
			logger.Error("duplicate key",
				log.String("vehicle", k.vehicleID),
				log.Int("lap", k.lap))
			issues++
		}
	}

	for _, ch := range table.Channels {
		present := 0
		for i := range table.Rows {
			if _, ok := table.Rows[i].Values[ch]; ok {
				present++
			}
		}
		if present == 0 {
			logger.Warn("channel has no values", log.String("channel", ch))
		}
	}

	logger.Info("artifact summary",
		log.String("artifact", path),
		log.String("schemaVersion", meta.SchemaVersion),
		log.String("buildId", meta.BuildID),
		log.String("source", meta.Source),
		log.Int64("rowsIn", meta.RowsIn),
		log.Int("rows", len(table.Rows)),
		log.Int("channels", len(table.Channels)),
		log.Time("builtAt", meta.BuiltAt))

	issues += compareStats(logger, path, meta, len(table.Rows))

	if issues > 0 {
		logger.Fatal("artifact check failed", log.Int("issues", issues))
	}
	logger.Info("artifact check passed", log.String("artifact", path))
}

// compareStats cross-checks the stats file published next to the
// artifact against the artifact footer. A missing stats file is only a
// warning, the artifact alone is still usable.
func compareStats(
	logger *log.Logger,
	artifact string,
	meta *telemetry.ArtifactMeta,
	rows int,
) int {
	path := aggregate.StatsPath(artifact)
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("no stats file next to artifact",
			log.String("stats", path), log.ErrorField(err))
		return 0
	}
	obj, err := oj.ParseString(string(raw))
	if err != nil {
		logger.Error("stats file is not valid json",
			log.String("stats", path), log.ErrorField(err))
		return 1
	}
	issues := 0
	if got := firstString(obj, "$.buildId"); got != meta.BuildID {
		logger.Error("stats build id differs from artifact",
			log.String("stats", got),
			log.String("artifact", meta.BuildID))
		issues++
	}
	if got, ok := firstInt(obj, "$.rowsOut"); ok && got != int64(rows) {
		logger.Error("stats row count differs from artifact",
			log.Int64("stats", got),
			log.Int("artifact", rows))
		issues++
	}
	return issues
}

func firstString(obj any, path string) string {
	p, err := jp.ParseString(path)
	if err != nil {
		return ""
	}
	if res := p.Get(obj); len(res) > 0 {
		if s, ok := res[0].(string); ok {
			return s
		}
	}
	return ""
}

func firstInt(obj any, path string) (int64, bool) {
	p, err := jp.ParseString(path)
	if err != nil {
		return 0, false
	}
	if res := p.Get(obj); len(res) > 0 {
		switch v := res[0].(type) {
		case int64:
			return v, true
		case float64:
			return int64(v), true
		}
	}
	return 0, false
}
