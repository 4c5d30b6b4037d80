package telemetry

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/pkg/tabular"
)

// DefaultChunkSize is the row batch size the aggregation pipeline was
// tuned for. Raw telemetry exports run into the gigabytes, so they are
// never held in memory as a whole.
const DefaultChunkSize = 100_000

// ChunkReader streams a raw long-format telemetry CSV as batches of
// samples. Rows without a usable vehicle id, lap or channel name are
// skipped; values that do not parse become NaN and timestamps that do
// not parse become the zero time.
type ChunkReader struct {
	file      *os.File
	csv       *csv.Reader
	chunkSize int

	idIdx    int
	lapIdx   int
	nameIdx  int
	valueIdx int
	tsIdx    int

	rowsRead int64
	done     bool
}

// OpenCSV opens a raw telemetry CSV. chunkSize <= 0 selects
// DefaultChunkSize. The header must carry the four long-format columns;
// the timestamp column is optional.
func OpenCSV(path string, chunkSize int) (*ChunkReader, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bufio.NewReaderSize(f, 1<<20))
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	ret := &ChunkReader{file: f, csv: r, chunkSize: chunkSize}
	ret.idIdx = headerIndex(header, model.ColVehicleID)
	ret.lapIdx = headerIndex(header, model.ColLap)
	ret.nameIdx = headerIndex(header, model.ColTelemetryName)
	ret.valueIdx = headerIndex(header, model.ColTelemetryValue)
	ret.tsIdx = headerIndex(header, model.ColTimestamp)
	if ret.idIdx < 0 || ret.lapIdx < 0 || ret.nameIdx < 0 || ret.valueIdx < 0 {
		f.Close()
		return nil, fmt.Errorf("%s does not look like long-format telemetry (columns %v)",
			path, header)
	}
	return ret, nil
}

func headerIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// ReadChunk consumes the next window of up to chunkSize raw rows and
// returns their samples, io.EOF once the file is exhausted. Skipped
// rows count against the window, so a batch may be shorter than the
// chunk size (or even empty) without meaning end of data.
func (r *ChunkReader) ReadChunk() ([]model.Sample, error) {
	if r.done {
		return nil, io.EOF
	}
	samples := make([]model.Sample, 0, r.chunkSize)
	for consumed := 0; consumed < r.chunkSize; consumed++ {
		rec, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			return nil, err
		}
		r.rowsRead++
		if s, ok := r.sample(rec); ok {
			samples = append(samples, s)
		}
	}
	if len(samples) == 0 && r.done {
		return nil, io.EOF
	}
	return samples, nil
}

func (r *ChunkReader) sample(rec []string) (model.Sample, bool) {
	id := strings.TrimSpace(rec[r.idIdx])
	if id == "" {
		return model.Sample{}, false
	}
	lap, ok := tabular.AsInt(rec[r.lapIdx])
	if !ok {
		return model.Sample{}, false
	}
	name := strings.TrimSpace(rec[r.nameIdx])
	if name == "" {
		return model.Sample{}, false
	}
	value := math.NaN()
	if v, valueOk := tabular.AsFloat(rec[r.valueIdx]); valueOk {
		value = v
	}
	var ts time.Time
	if r.tsIdx >= 0 {
		if t, tsOk := tabular.AsTime(rec[r.tsIdx]); tsOk {
			ts = t
		}
	}
	return model.Sample{
		VehicleID: id,
		Lap:       int(lap),
		Name:      name,
		Value:     value,
		Timestamp: ts,
	}, true
}

// RowsRead reports the raw data rows consumed so far, skipped rows
// included.
func (r *ChunkReader) RowsRead() int64 {
	return r.rowsRead
}

func (r *ChunkReader) Close() error {
	return r.file.Close()
}

// ReadAllCSV loads a complete raw telemetry CSV into memory.
func ReadAllCSV(path string) ([]model.Sample, error) {
	r, err := OpenCSV(path, 0)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	ret := make([]model.Sample, 0)
	for {
		chunk, err := r.ReadChunk()
		if errors.Is(err, io.EOF) {
			return ret, nil
		}
		if err != nil {
			return nil, err
		}
		ret = append(ret, chunk...)
	}
}
