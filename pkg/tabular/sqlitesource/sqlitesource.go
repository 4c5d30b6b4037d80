// Package sqlitesource reads workbook tables from a SQLite database
// file. The database is opened read-only; one table maps to one sheet
// of the original workbook export.
package sqlitesource

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/raceiq/raceiq-core-go/pkg/tabular"
)

type Source struct {
	db   *sql.DB
	path string
}

// New opens the database file read-only. The file must exist; a reader
// must never create an empty database as a side effect.
func New(path string) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("workbook %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	return &Source{db: db, path: path}, nil
}

func (s *Source) Close() error {
	return s.db.Close()
}

func (s *Source) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables of %s: %w", s.path, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Source) ReadTable(ctx context.Context, name string) (*tabular.RowSet, error) {
	ok, err := s.hasTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", name, s.path, tabular.ErrTableNotFound)
	}

	// Sheet-derived table names carry spaces, so the identifier must
	// be quoted.
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s`, quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("reading %s from %s: %w", name, s.path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &tabular.RowSet{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", name, err)
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return rs, nil
}

func (s *Source) hasTable(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", name, err)
	}
	return n > 0, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
