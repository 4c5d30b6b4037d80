// Package telemetry loads, aggregates and extracts the per-lap
// telemetry of a race. Raw exports are long-format CSVs in the
// gigabyte range; the aggregated parquet artifact holds the same
// information pivoted to one row per (vehicle, lap).
package telemetry

import (
	"context"
	"errors"
	"io/fs"

	"github.com/raceiq/raceiq-core-go/log"
	"github.com/raceiq/raceiq-core-go/pkg/catalog"
	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/utils/cache"
	"github.com/raceiq/raceiq-core-go/pkg/utils/cache/loadercache"
)

type (
	LoaderOption func(l *Loader)
	// Loader resolves the telemetry of a race, preferring the
	// aggregated artifact and falling back to the raw CSV. Results are
	// cached for the process lifetime; a race that yields nothing is
	// cached as empty just the same.
	Loader struct {
		cat              *catalog.Catalog
		dataDir          string
		preferAggregated bool
		logger           *log.Logger
		data             cache.Cache[string, model.TelemetryData]
	}
)

func WithCatalog(cat *catalog.Catalog) LoaderOption {
	return func(l *Loader) {
		l.cat = cat
	}
}

func WithDataDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.dataDir = dir
	}
}

// WithPreferAggregated controls whether the artifact is tried before
// the raw CSV. Enabled by default.
func WithPreferAggregated(arg bool) LoaderOption {
	return func(l *Loader) {
		l.preferAggregated = arg
	}
}

func WithLogger(arg *log.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = arg
	}
}

func NewLoader(opts ...LoaderOption) *Loader {
	ret := &Loader{
		cat:              catalog.Default(),
		preferAggregated: true,
		logger:           log.Default().Named("telemetry"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.data = loadercache.New(
		loadercache.WithLoader(ret.load),
		loadercache.WithExpiration[string, model.TelemetryData](0),
		loadercache.WithLogger[string, model.TelemetryData](ret.logger),
	)
	return ret
}

// Load returns the telemetry of a race, empty data when nothing is
// available. It never fails.
func (l *Loader) Load(ctx context.Context, race string) *model.TelemetryData {
	data, err := l.data.Get(ctx, race)
	if err != nil || data == nil {
		return &model.TelemetryData{Shape: model.ShapeEmpty}
	}
	return data
}

// Invalidate drops the cached telemetry of a race, forcing a reload on
// the next access. Used after re-aggregation.
func (l *Loader) Invalidate(ctx context.Context, race string) {
	l.data.Invalidate(ctx, race)
}

func (l *Loader) load(race string) (*model.TelemetryData, error) {
	r, ok := l.cat.Race(race)
	if !ok {
		l.logger.Warn("unknown race", log.String("race", race))
		return &model.TelemetryData{Shape: model.ShapeEmpty}, nil
	}
	if l.preferAggregated {
		if data := l.loadArtifact(r); data != nil {
			return data, nil
		}
	}
	if data := l.loadRaw(r); data != nil {
		return data, nil
	}
	l.logger.Warn("no telemetry available", log.String("race", r.Key))
	return &model.TelemetryData{Shape: model.ShapeEmpty}, nil
}

func (l *Loader) loadArtifact(r *catalog.Race) *model.TelemetryData {
	path := catalog.ResolvePath(l.dataDir, r.TelemetryArtifact)
	if path == "" {
		return nil
	}
	table, _, err := ReadArtifact(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("artifact not usable, falling back to raw data",
				log.String("path", path), log.ErrorField(err))
		}
		return nil
	}
	l.logger.Info("aggregated telemetry loaded",
		log.String("race", r.Key),
		log.String("path", path),
		log.Int("rows", len(table.Rows)))
	return model.WideData(table)
}

func (l *Loader) loadRaw(r *catalog.Race) *model.TelemetryData {
	path := catalog.ResolvePath(l.dataDir, r.TelemetryCSV)
	if path == "" {
		return nil
	}
	samples, err := ReadAllCSV(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("raw telemetry not usable",
				log.String("path", path), log.ErrorField(err))
		}
		return nil
	}
	l.logger.Info("raw telemetry loaded",
		log.String("race", r.Key),
		log.String("path", path),
		log.Int("samples", len(samples)))
	return model.LongData(samples)
}
