// Package laps rebuilds per-lap durations from the raw timing tables.
//
// Durations are successive timestamp differences within one vehicle's
// rows, so the first recorded lap of a vehicle never has one. When the
// dedicated time-log table has usable rows its durations win and the
// end-log contributes keys only; the end-log's own differences are used
// only when the time-log is empty.
package laps

import (
	"context"
	"sort"
	"time"

	"github.com/aarondl/opt/null"

	"github.com/raceiq/raceiq-core-go/log"
	"github.com/raceiq/raceiq-core-go/pkg/catalog"
	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/tabular"
)

type (
	Option    func(p *Processor)
	Processor struct {
		idColumn       string
		lapColumn      string
		endTimeColumns []string
		timeLogColumns []string
	}
)

func WithIDColumn(col string) Option {
	return func(p *Processor) {
		p.idColumn = col
	}
}

func WithLapColumn(col string) Option {
	return func(p *Processor) {
		p.lapColumn = col
	}
}

// WithEndTimeColumns sets the candidate timestamp columns of the
// end-log table (first present wins).
func WithEndTimeColumns(cols ...string) Option {
	return func(p *Processor) {
		p.endTimeColumns = cols
	}
}

// WithTimeLogColumns sets the candidate timestamp columns of the
// time-log table.
func WithTimeLogColumns(cols ...string) Option {
	return func(p *Processor) {
		p.timeLogColumns = cols
	}
}

func New(opts ...Option) *Processor {
	ret := &Processor{
		idColumn:       model.ColVehicleID,
		lapColumn:      model.ColLap,
		endTimeColumns: []string{model.ColTimestamp, model.ColMetaTime},
		timeLogColumns: []string{model.ColTimestamp},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Build reconstructs the lap records of a race. Every failure path
// yields an empty slice, never an error.
func (p *Processor) Build(
	ctx context.Context,
	src tabular.Source,
	race *catalog.Race,
) []model.LapRecord {
	logger := log.GetFromContext(ctx).Named("laps")

	endLaps := p.FromTimestamps(p.readTable(ctx, src, race.LapEndTable, logger),
		p.endTimeColumns)
	timeLaps := p.FromTimestamps(p.readTable(ctx, src, race.LapTimeTable, logger),
		p.timeLogColumns)

	var merged []model.LapRecord
	if len(timeLaps) > 0 {
		merged = mergeOnKeys(endLaps, timeLaps)
	} else {
		merged = endLaps
	}
	sortRecords(merged)
	return merged
}

func (p *Processor) readTable(
	ctx context.Context,
	src tabular.Source,
	name string,
	logger *log.Logger,
) *tabular.RowSet {
	if src == nil || name == "" {
		return nil
	}
	rs, err := src.ReadTable(ctx, name)
	if err != nil {
		logger.Debug("timing table unavailable",
			log.String("table", name), log.ErrorField(err))
		return nil
	}
	return rs
}

type stintRow struct {
	lap      int
	ts       time.Time
	hasTS    bool
	duration null.Val[float64]
}

// FromTimestamps derives one lap record per (vehicle, lap) from a raw
// timing table. timeCols are candidate timestamp columns; the first one
// present in the row-set is used for every row.
//
//nolint:gocognit // the coercion ladder reads best in one piece
func (p *Processor) FromTimestamps(
	rs *tabular.RowSet,
	timeCols []string,
) []model.LapRecord {
	ret := make([]model.LapRecord, 0)
	if rs.Empty() {
		return ret
	}
	idIdx := rs.ColumnIndex(p.idColumn)
	lapIdx := rs.ColumnIndex(p.lapColumn)
	if idIdx < 0 || lapIdx < 0 {
		return ret
	}
	_, tsIdx := rs.FirstPresent(timeCols)
	if tsIdx < 0 {
		return ret
	}

	byVehicle := make(map[string][]stintRow)
	for _, row := range rs.Rows {
		id, ok := tabular.AsString(row[idIdx])
		if !ok {
			continue
		}
		lap, ok := tabular.AsInt(row[lapIdx])
		if !ok {
			// unparseable lap numbers cannot survive into the output
			continue
		}
		ts, hasTS := tabular.AsTime(row[tsIdx])
		byVehicle[id] = append(byVehicle[id],
			stintRow{lap: int(lap), ts: ts, hasTS: hasTS})
	}

	vehicles := make([]string, 0, len(byVehicle))
	for id := range byVehicle {
		vehicles = append(vehicles, id)
	}
	sort.Strings(vehicles)

	for _, id := range vehicles {
		rows := byVehicle[id]
		// order by (lap, ts); rows without a timestamp go last within
		// their lap
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].lap != rows[j].lap {
				return rows[i].lap < rows[j].lap
			}
			if rows[i].hasTS != rows[j].hasTS {
				return rows[i].hasTS
			}
			return rows[i].ts.Before(rows[j].ts)
		})
		// successive differences over the full sequence, duplicates
		// included; the first row has no predecessor
		for i := range rows {
			if i > 0 && rows[i].hasTS && rows[i-1].hasTS {
				rows[i].duration = null.From(rows[i].ts.Sub(rows[i-1].ts).Seconds())
			}
		}
		for _, i := range lastPerLap(rows) {
			// out-of-range laps took part in the differences above but
			// never appear in the output
			if rows[i].lap < 1 {
				continue
			}
			ret = append(ret, model.LapRecord{
				VehicleID: id,
				Lap:       rows[i].lap,
				LapTimeS:  rows[i].duration,
			})
		}
	}
	return ret
}

// lastPerLap returns the indexes of the last occurrence of each lap, in
// ascending row order.
func lastPerLap(rows []stintRow) []int {
	last := make(map[int]int, len(rows))
	for i := range rows {
		last[rows[i].lap] = i
	}
	ret := make([]int, 0, len(last))
	for i := range rows {
		if last[rows[i].lap] == i {
			ret = append(ret, i)
		}
	}
	return ret
}

// mergeOnKeys joins the union of both key sets with durations taken
// exclusively from the time-log records.
func mergeOnKeys(endLaps, timeLaps []model.LapRecord) []model.LapRecord {
	durations := make(map[model.Key]null.Val[float64], len(timeLaps))
	for i := range timeLaps {
		durations[model.Key{VehicleID: timeLaps[i].VehicleID, Lap: timeLaps[i].Lap}] =
			timeLaps[i].LapTimeS
	}
	seen := make(map[model.Key]struct{}, len(endLaps)+len(timeLaps))
	ret := make([]model.LapRecord, 0, len(endLaps)+len(timeLaps))
	add := func(key model.Key) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		ret = append(ret, model.LapRecord{
			VehicleID: key.VehicleID,
			Lap:       key.Lap,
			LapTimeS:  durations[key],
		})
	}
	for i := range endLaps {
		add(model.Key{VehicleID: endLaps[i].VehicleID, Lap: endLaps[i].Lap})
	}
	for i := range timeLaps {
		add(model.Key{VehicleID: timeLaps[i].VehicleID, Lap: timeLaps[i].Lap})
	}
	return ret
}

func sortRecords(records []model.LapRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].VehicleID != records[j].VehicleID {
			return records[i].VehicleID < records[j].VehicleID
		}
		return records[i].Lap < records[j].Lap
	})
}
