package tabular

import (
	"context"
	"errors"
)

var ErrTableNotFound = errors.New("table not found")

// RowSet is an in-memory slice of a named table: column names plus rows
// of raw driver values. Values keep whatever type the source delivered;
// coercion happens in the consumers (see coerce.go).
type RowSet struct {
	Columns []string
	Rows    [][]any
}

func (rs *RowSet) Empty() bool {
	return rs == nil || len(rs.Rows) == 0
}

// ColumnIndex returns the position of the named column or -1.
func (rs *RowSet) ColumnIndex(name string) int {
	if rs == nil {
		return -1
	}
	for i, c := range rs.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// FirstPresent resolves an ordered list of candidate column names to the
// first one the row-set actually has. The resolution happens once per
// table, not per row.
func (rs *RowSet) FirstPresent(candidates []string) (string, int) {
	for _, c := range candidates {
		if idx := rs.ColumnIndex(c); idx >= 0 {
			return c, idx
		}
	}
	return "", -1
}

// Source provides access to the named tables of a workbook-like store.
type Source interface {
	// TableNames lists the available tables.
	TableNames(ctx context.Context) ([]string, error)
	// ReadTable reads one table completely. Returns ErrTableNotFound
	// (possibly wrapped) when the table does not exist.
	ReadTable(ctx context.Context, name string) (*RowSet, error)
}
