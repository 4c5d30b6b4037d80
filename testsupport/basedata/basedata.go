package basedata

import (
	"context"
	"log"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/repository/importrun"
	telemetryrepos "github.com/raceiq/raceiq-core-go/pkg/repository/telemetry"
	timingrepos "github.com/raceiq/raceiq-core-go/pkg/repository/timing"
)

const (
	SampleRace         = "R1"
	SampleLapEndTable  = "R1_barber_lap_end"
	SampleLapTimeTable = "R1_barber_lap_time"
)

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2025-04-05T14:00:00Z")
	return t
}

// CreateSampleTimingData transfers a small two-vehicle lap-time table
// into the store and returns the finished import run.
func CreateSampleTimingData(pool *pgxpool.Pool) *model.ImportRun {
	ctx := context.Background()
	var run *model.ImportRun
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		var err error
		run, err = importrun.Create(ctx, tx,
			SampleRace, SampleLapTimeTable, model.ImportKindTiming)
		if err != nil {
			return err
		}
		events := sampleTimingEvents(run)
		n, err := timingrepos.CopyEvents(ctx, tx, events)
		if err != nil {
			return err
		}
		if err = importrun.Finish(ctx, tx, run.ID, n); err != nil {
			return err
		}
		run, err = importrun.LoadByID(ctx, tx, run.ID)
		return err
	})
	if err != nil {
		log.Fatalf("createSampleTimingData: %v\n", err)
	}
	return run
}

func sampleTimingEvents(run *model.ImportRun) []*model.TimingEvent {
	base := TestTime()
	vehicles := []struct {
		id     string
		offset time.Duration
	}{
		{id: "12", offset: 0},
		{id: "44", offset: 2 * time.Second},
	}
	ret := make([]*model.TimingEvent, 0)
	for _, v := range vehicles {
		stamp := base.Add(v.offset)
		for lap := 1; lap <= 3; lap++ {
			stamp = stamp.Add(time.Duration(90+lap) * time.Second)
			ret = append(ret, &model.TimingEvent{
				Race:        run.Race,
				SourceTable: run.Source,
				Kind:        model.KindLapTime,
				VehicleID:   v.id,
				Lap:         lap,
				TS:          null.From(stamp),
				ImportRunID: run.ID,
			})
		}
	}
	return ret
}

// CreateSampleTelemetryData loads a few long-format samples and returns
// the finished import run.
func CreateSampleTelemetryData(pool *pgxpool.Pool) *model.ImportRun {
	ctx := context.Background()
	var run *model.ImportRun
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		var err error
		run, err = importrun.Create(ctx, tx,
			SampleRace, "R1_barber_telemetry_data.csv", model.ImportKindTelemetry)
		if err != nil {
			return err
		}
		samples := sampleDbSamples(run)
		n, err := telemetryrepos.CopySamples(ctx, tx, samples)
		if err != nil {
			return err
		}
		if err = importrun.Finish(ctx, tx, run.ID, n); err != nil {
			return err
		}
		run, err = importrun.LoadByID(ctx, tx, run.ID)
		return err
	})
	if err != nil {
		log.Fatalf("createSampleTelemetryData: %v\n", err)
	}
	return run
}

func sampleDbSamples(run *model.ImportRun) []*model.DbSample {
	base := TestTime()
	channels := []struct {
		name string
		val  float64
	}{
		{name: "speed", val: 182.5},
		{name: "gear", val: 4},
		{name: "nmot", val: 6400},
	}
	ret := make([]*model.DbSample, 0)
	for lap := 1; lap <= 2; lap++ {
		for _, c := range channels {
			ret = append(ret, &model.DbSample{
				Race:      run.Race,
				VehicleID: "12",
				Lap:       lap,
				Name:      c.name,
				Value: decimal.NullDecimal{
					Decimal: decimal.NewFromFloat(c.val), Valid: true,
				},
				TS:          null.From(base.Add(time.Duration(lap) * time.Minute)),
				ImportRunID: run.ID,
			})
		}
	}
	return ret
}
