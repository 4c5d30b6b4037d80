// Package aggregate turns raw long-format telemetry CSVs into compact
// wide parquet artifacts. The mean of a (vehicle, lap, channel) group
// is computed as the mean of per-chunk means, which keeps memory flat
// over gigabyte inputs and stays close enough to the exact mean for
// per-lap channel data.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"

	"github.com/raceiq/raceiq-core-go/log"
	"github.com/raceiq/raceiq-core-go/pkg/catalog"
	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/telemetry"
)

const progressEvery = 10 // chunks

type (
	Option     func(a *Aggregator)
	Aggregator struct {
		cat       *catalog.Catalog
		dataDir   string
		chunkSize int
		logger    *log.Logger
	}
)

func WithCatalog(cat *catalog.Catalog) Option {
	return func(a *Aggregator) {
		a.cat = cat
	}
}

func WithDataDir(dir string) Option {
	return func(a *Aggregator) {
		a.dataDir = dir
	}
}

func WithChunkSize(size int) Option {
	return func(a *Aggregator) {
		a.chunkSize = size
	}
}

func WithLogger(arg *log.Logger) Option {
	return func(a *Aggregator) {
		a.logger = arg
	}
}

func New(opts ...Option) *Aggregator {
	ret := &Aggregator{
		cat:       catalog.Default(),
		chunkSize: telemetry.DefaultChunkSize,
		logger:    log.Default().Named("aggregate"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Result describes one published artifact. It is also the payload of
// the stats file written next to the artifact.
type Result struct {
	Race        string    `json:"race"`
	Source      string    `json:"source"`
	Artifact    string    `json:"artifact"`
	BuildID     string    `json:"buildId"`
	RowsIn      int64     `json:"rowsIn"`
	RowsOut     int       `json:"rowsOut"`
	Channels    int       `json:"channels"`
	InputBytes  int64     `json:"inputBytes"`
	OutputBytes int64     `json:"outputBytes"`
	Reduction   float64   `json:"reductionPercent"`
	BuiltAt     time.Time `json:"builtAt"`
}

// ProcessAll aggregates every race in the catalog. Races without raw
// input are skipped with a warning; any other failure aborts.
func (a *Aggregator) ProcessAll(ctx context.Context) ([]*Result, error) {
	ret := make([]*Result, 0, len(a.cat.Races))
	for i := range a.cat.Races {
		race := &a.cat.Races[i]
		result, err := a.Process(ctx, race.Key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				a.logger.Warn("raw telemetry not found, skipping race",
					log.String("race", race.Key),
					log.String("file", race.TelemetryCSV))
				continue
			}
			return nil, err
		}
		ret = append(ret, result)
	}
	return ret, nil
}

// Process aggregates one race and publishes its artifact.
//
//nolint:funlen // the pipeline reads best top to bottom
func (a *Aggregator) Process(ctx context.Context, raceKey string) (*Result, error) {
	race, ok := a.cat.Race(raceKey)
	if !ok {
		return nil, fmt.Errorf("unknown race %q", raceKey)
	}
	if race.TelemetryCSV == "" || race.TelemetryArtifact == "" {
		return nil, fmt.Errorf("race %s has no telemetry files configured", race.Key)
	}
	input := catalog.ResolvePath(a.dataDir, race.TelemetryCSV)
	output := catalog.ResolvePath(a.dataDir, race.TelemetryArtifact)

	reader, err := telemetry.OpenCSV(input, a.chunkSize)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	a.logger.Info("aggregating raw telemetry",
		log.String("race", race.Key), log.String("input", input))

	groups := newGroupAggregator()
	chunks := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, err := reader.ReadChunk()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", input, err)
		}
		groups.addChunk(chunk)
		chunks++
		if chunks%progressEvery == 0 {
			a.logger.Info("aggregation progress",
				log.String("race", race.Key),
				log.Int("chunks", chunks),
				log.Int64("rows", reader.RowsRead()))
		}
	}
	rowsIn := reader.RowsRead()
	table := telemetry.Pivot(groups.finish())

	meta := telemetry.ArtifactMeta{
		BuildID: uuid.NewString(),
		Source:  filepath.Base(input),
		RowsIn:  rowsIn,
		RowsOut: int64(len(table.Rows)),
		BuiltAt: time.Now().UTC(),
	}
	if err := telemetry.WriteArtifact(output, table, meta); err != nil {
		return nil, err
	}

	result := &Result{
		Race:     race.Key,
		Source:   meta.Source,
		Artifact: output,
		BuildID:  meta.BuildID,
		RowsIn:   rowsIn,
		RowsOut:  len(table.Rows),
		Channels: len(table.Channels),
		BuiltAt:  meta.BuiltAt,
	}
	if st, err := os.Stat(input); err == nil {
		result.InputBytes = st.Size()
	}
	if st, err := os.Stat(output); err == nil {
		result.OutputBytes = st.Size()
	}
	if result.InputBytes > 0 {
		result.Reduction = (1 - float64(result.OutputBytes)/float64(result.InputBytes)) * 100
	}
	if err := a.writeStats(result); err != nil {
		return nil, err
	}

	a.logger.Info("artifact published",
		log.String("race", race.Key),
		log.String("artifact", output),
		log.Int64("rowsIn", result.RowsIn),
		log.Int("rowsOut", result.RowsOut),
		log.Int("channels", result.Channels),
		log.Int64("inputBytes", result.InputBytes),
		log.Int64("outputBytes", result.OutputBytes),
		log.Float64("reductionPercent", result.Reduction))
	return result, nil
}

// StatsPath returns the location of the stats file belonging to an
// artifact.
func StatsPath(artifact string) string {
	return strings.TrimSuffix(artifact, filepath.Ext(artifact)) + ".stats.json"
}

func (a *Aggregator) writeStats(result *Result) error {
	path := StatsPath(result.Artifact)
	if err := os.WriteFile(path, []byte(oj.JSON(result, 2)), 0o644); err != nil {
		return fmt.Errorf("writing stats %s: %w", path, err)
	}
	return nil
}

type groupKey struct {
	vehicleID string
	lap       int
	name      string
}

type groupCell struct {
	sum float64
	n   int
	ts  time.Time
}

// groupAggregator accumulates per-chunk means. Only one cell per
// distinct (vehicle, lap, channel) is held across the whole run.
type groupAggregator struct {
	cells map[groupKey]*groupCell
}

func newGroupAggregator() *groupAggregator {
	return &groupAggregator{cells: make(map[groupKey]*groupCell)}
}

func (g *groupAggregator) addChunk(samples []model.Sample) {
	local := make(map[groupKey]*groupCell)
	order := make([]groupKey, 0, 64)
	for i := range samples {
		s := &samples[i]
		key := groupKey{vehicleID: s.VehicleID, lap: s.Lap, name: s.Name}
		c := local[key]
		if c == nil {
			c = &groupCell{}
			local[key] = c
			order = append(order, key)
		}
		if !math.IsNaN(s.Value) {
			c.sum += s.Value
			c.n++
		}
		if c.ts.IsZero() && !s.Timestamp.IsZero() {
			c.ts = s.Timestamp
		}
	}
	for _, key := range order {
		c := local[key]
		cell := g.cells[key]
		if cell == nil {
			cell = &groupCell{}
			g.cells[key] = cell
		}
		if c.n > 0 {
			cell.sum += c.sum / float64(c.n)
			cell.n++
		}
		if cell.ts.IsZero() && !c.ts.IsZero() {
			cell.ts = c.ts
		}
	}
}

// finish renders the accumulated groups as long samples, one per
// (vehicle, lap, channel), ordered by key. Groups that never saw a
// numeric value keep a NaN mean.
func (g *groupAggregator) finish() []model.Sample {
	keys := make([]groupKey, 0, len(g.cells))
	for key := range g.cells {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.vehicleID != b.vehicleID {
			return a.vehicleID < b.vehicleID
		}
		if a.lap != b.lap {
			return a.lap < b.lap
		}
		return a.name < b.name
	})
	ret := make([]model.Sample, 0, len(keys))
	for _, key := range keys {
		cell := g.cells[key]
		value := math.NaN()
		if cell.n > 0 {
			value = cell.sum / float64(cell.n)
		}
		ret = append(ret, model.Sample{
			VehicleID: key.vehicleID,
			Lap:       key.lap,
			Name:      key.name,
			Value:     value,
			Timestamp: cell.ts,
		})
	}
	return ret
}
