package model

import (
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// Timing event kinds as stored in raceiq.timing_event.
const (
	KindLapEnd  = "lap_end"
	KindLapTime = "lap_time"
)

// Import run kinds as stored in raceiq.import_run.
const (
	ImportKindTiming    = "timing"
	ImportKindTelemetry = "telemetry"
)

type ImportRun struct {
	ID         uuid.UUID           `json:"id"`
	Race       string              `json:"race"`
	Source     string              `json:"source"`
	Kind       string              `json:"kind"`
	RowsCopied int64               `json:"rowsCopied"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt null.Val[time.Time] `json:"finishedAt"`
}

type TimingEvent struct {
	ID          int64               `json:"id"`
	Race        string              `json:"race"`
	SourceTable string              `json:"sourceTable"`
	Kind        string              `json:"kind"`
	VehicleID   string              `json:"vehicleId"`
	Lap         int                 `json:"lap"`
	TS          null.Val[time.Time] `json:"ts"`
	MetaTS      null.Val[time.Time] `json:"metaTs"`
	ImportRunID uuid.UUID           `json:"importRunId"`
}

type DbSample struct {
	ID          int64               `json:"id"`
	Race        string              `json:"race"`
	VehicleID   string              `json:"vehicleId"`
	Lap         int                 `json:"lap"`
	Name        string              `json:"name"`
	Value       decimal.NullDecimal `json:"value"`
	TS          null.Val[time.Time] `json:"ts"`
	ImportRunID uuid.UUID           `json:"importRunId"`
}
