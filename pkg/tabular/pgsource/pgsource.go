// Package pgsource serves transferred timing tables from the raceiq
// store through the tabular.Source interface. Rows come back in the
// original workbook layout (vehicle_id, lap and whichever timestamp
// columns the source table carried), so the lap reconstruction treats
// both backends identically. Only timing tables are transferred;
// weather and results tables stay workbook-only.
package pgsource

import (
	"context"
	"fmt"
	"time"

	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/repository"
	"github.com/raceiq/raceiq-core-go/pkg/repository/timing"
	"github.com/raceiq/raceiq-core-go/pkg/tabular"
)

type Source struct {
	conn repository.Querier
}

func New(conn repository.Querier) *Source {
	return &Source{conn: conn}
}

func (s *Source) TableNames(ctx context.Context) ([]string, error) {
	return timing.SourceTables(ctx, s.conn)
}

func (s *Source) ReadTable(ctx context.Context, name string) (*tabular.RowSet, error) {
	events, err := timing.LoadBySourceTable(ctx, s.conn, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s from store: %w", name, err)
	}
	// A table that was never transferred has no events. Empty source
	// tables are not distinguishable and count as absent too.
	if len(events) == 0 {
		return nil, fmt.Errorf("%s: %w", name, tabular.ErrTableNotFound)
	}
	hasTS, hasMetaTS, err := timing.ColumnPresence(ctx, s.conn, name)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", name, err)
	}

	cols := []string{model.ColVehicleID, model.ColLap}
	if hasTS {
		cols = append(cols, model.ColTimestamp)
	}
	if hasMetaTS {
		cols = append(cols, model.ColMetaTime)
	}
	rs := &tabular.RowSet{Columns: cols}
	for _, e := range events {
		row := []any{e.VehicleID, e.Lap}
		if hasTS {
			row = append(row, tsCell(e.TS.Ptr()))
		}
		if hasMetaTS {
			row = append(row, tsCell(e.MetaTS.Ptr()))
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}

func tsCell(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
