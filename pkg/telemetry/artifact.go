package telemetry

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/mod/semver"

	"github.com/raceiq/raceiq-core-go/pkg/model"
)

// SchemaVersion is stamped into every artifact footer. Readers accept
// artifacts of the same major version only.
const SchemaVersion = "v1.0.0"

const (
	metaSchemaVersion = "schema_version"
	metaBuildID       = "build_id"
	metaSource        = "source"
	metaRowsIn        = "rows_in"
	metaRowsOut       = "rows_out"
	metaBuiltAt       = "built_at"
)

// ArtifactMeta is the footer metadata of an aggregated artifact.
type ArtifactMeta struct {
	SchemaVersion string    `json:"schemaVersion"`
	BuildID       string    `json:"buildId"`
	Source        string    `json:"source"`
	RowsIn        int64     `json:"rowsIn"`
	RowsOut       int64     `json:"rowsOut"`
	BuiltAt       time.Time `json:"builtAt"`
}

// SchemaCompatible reports whether an artifact written with the given
// version can be read by this build.
func SchemaCompatible(version string) bool {
	if !semver.IsValid(version) {
		return false
	}
	return semver.Major(version) == semver.Major(SchemaVersion)
}

func wideSchema(channels []string) *parquet.Schema {
	group := parquet.Group{
		model.ColVehicleID: parquet.String(),
		model.ColLap:       parquet.Int(32),
	}
	for _, ch := range channels {
		if ch == model.ColVehicleID || ch == model.ColLap {
			continue
		}
		group[ch] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
	}
	return parquet.NewSchema("telemetry", group)
}

// WriteArtifact publishes a wide table as a snappy-compressed parquet
// file. The data is written to <path>.tmp and renamed into place after
// a sync, so a partial artifact is never visible under the final name.
func WriteArtifact(path string, table *model.WideTable, meta ArtifactMeta) error {
	if meta.SchemaVersion == "" {
		meta.SchemaVersion = SchemaVersion
	}
	if meta.BuiltAt.IsZero() {
		meta.BuiltAt = time.Now().UTC()
	}
	var channels []string
	if table != nil {
		channels = table.Channels
	}
	schema := wideSchema(channels)

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	fail := func(err error) error {
		f.Close()
		os.Remove(tmp)
		return err
	}

	w := parquet.NewWriter(f,
		schema,
		parquet.Compression(&parquet.Snappy),
		parquet.KeyValueMetadata(metaSchemaVersion, meta.SchemaVersion),
		parquet.KeyValueMetadata(metaBuildID, meta.BuildID),
		parquet.KeyValueMetadata(metaSource, meta.Source),
		parquet.KeyValueMetadata(metaRowsIn, strconv.FormatInt(meta.RowsIn, 10)),
		parquet.KeyValueMetadata(metaRowsOut, strconv.FormatInt(meta.RowsOut, 10)),
		parquet.KeyValueMetadata(metaBuiltAt, meta.BuiltAt.Format(time.RFC3339)),
	)
	if rows := buildRows(schema, table); len(rows) > 0 {
		if _, err := w.WriteRows(rows); err != nil {
			return fail(fmt.Errorf("writing %s: %w", tmp, err))
		}
	}
	if err := w.Close(); err != nil {
		return fail(fmt.Errorf("closing parquet writer for %s: %w", tmp, err))
	}
	if err := f.Sync(); err != nil {
		return fail(fmt.Errorf("syncing %s: %w", tmp, err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publishing %s: %w", path, err)
	}
	return nil
}

func buildRows(schema *parquet.Schema, table *model.WideTable) []parquet.Row {
	if table == nil {
		return nil
	}
	fields := schema.Fields()
	rows := make([]parquet.Row, 0, len(table.Rows))
	for i := range table.Rows {
		r := &table.Rows[i]
		row := make(parquet.Row, 0, len(fields))
		for col, field := range fields {
			switch field.Name() {
			case model.ColVehicleID:
				row = append(row,
					parquet.ByteArrayValue([]byte(r.VehicleID)).Level(0, 0, col))
			case model.ColLap:
				row = append(row, parquet.Int32Value(int32(r.Lap)).Level(0, 0, col))
			default:
				v, ok := r.Values[field.Name()]
				if !ok || math.IsNaN(v) {
					row = append(row, parquet.Value{}.Level(0, 0, col))
				} else {
					row = append(row, parquet.DoubleValue(v).Level(0, 1, col))
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ReadArtifact loads an aggregated artifact. The metadata is returned
// even when the table is rejected, so callers can report what they
// found.
func ReadArtifact(path string) (*model.WideTable, *ArtifactMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("opening artifact %s: %w", path, err)
	}
	meta := readMeta(pf)
	if !SchemaCompatible(meta.SchemaVersion) {
		return nil, meta, fmt.Errorf("artifact %s has incompatible schema version %q (want %s.x)",
			path, meta.SchemaVersion, semver.Major(SchemaVersion))
	}

	fields := pf.Schema().Fields()
	idCol, lapCol := -1, -1
	channels := make([]string, 0, len(fields))
	for i, field := range fields {
		switch field.Name() {
		case model.ColVehicleID:
			idCol = i
		case model.ColLap:
			lapCol = i
		default:
			channels = append(channels, field.Name())
		}
	}
	if idCol < 0 || lapCol < 0 {
		return nil, meta, fmt.Errorf("artifact %s lacks the vehicle/lap key columns", path)
	}

	table := &model.WideTable{Channels: channels}
	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, fields, table); err != nil {
			return nil, meta, fmt.Errorf("reading artifact %s: %w", path, err)
		}
	}
	return table, meta, nil
}

func readRowGroup(
	rg parquet.RowGroup,
	fields []parquet.Field,
	table *model.WideTable,
) error {
	rows := rg.Rows()
	defer rows.Close()
	buf := make([]parquet.Row, 64)
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			table.Rows = append(table.Rows, decodeRow(row, fields))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func decodeRow(row parquet.Row, fields []parquet.Field) model.WideRow {
	ret := model.WideRow{Values: make(map[string]float64, len(fields))}
	for _, v := range row {
		if v.Column() < 0 || v.Column() >= len(fields) {
			continue
		}
		name := fields[v.Column()].Name()
		switch name {
		case model.ColVehicleID:
			ret.VehicleID = stringCell(v)
		case model.ColLap:
			ret.Lap = intCell(v)
		default:
			if f, ok := floatCell(v); ok {
				ret.Values[name] = f
			}
		}
	}
	return ret
}

func stringCell(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	default:
		return ""
	}
}

func intCell(v parquet.Value) int {
	if v.IsNull() {
		return 0
	}
	switch v.Kind() {
	case parquet.Int32:
		return int(v.Int32())
	case parquet.Int64:
		return int(v.Int64())
	case parquet.Double:
		return int(v.Double())
	default:
		return 0
	}
}

func floatCell(v parquet.Value) (float64, bool) {
	if v.IsNull() {
		return 0, false
	}
	switch v.Kind() {
	case parquet.Double:
		return v.Double(), true
	case parquet.Float:
		return float64(v.Float()), true
	case parquet.Int32:
		return float64(v.Int32()), true
	case parquet.Int64:
		return float64(v.Int64()), true
	default:
		return 0, false
	}
}

func readMeta(f *parquet.File) *ArtifactMeta {
	ret := &ArtifactMeta{}
	if v, ok := f.Lookup(metaSchemaVersion); ok {
		ret.SchemaVersion = v
	}
	if v, ok := f.Lookup(metaBuildID); ok {
		ret.BuildID = v
	}
	if v, ok := f.Lookup(metaSource); ok {
		ret.Source = v
	}
	if v, ok := f.Lookup(metaRowsIn); ok {
		ret.RowsIn, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := f.Lookup(metaRowsOut); ok {
		ret.RowsOut, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := f.Lookup(metaBuiltAt); ok {
		ret.BuiltAt, _ = time.Parse(time.RFC3339, v)
	}
	return ret
}
