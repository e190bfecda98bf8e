// Package storage keeps recorded runs on disk, one directory per run with
// a metadata.json and a states.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

var ErrCorruptRun = errors.New("storage: corrupt run data")

// Table is recorded data: a timestamp and one value per column per row.
type Table interface {
	Columns() []string
	Times() []float64
	Rows() [][]float64
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	System      string             `json:"system"`
	Description string             `json:"description,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	FPS         int                `json:"fps"`
	Steps       int                `json:"steps"`
	Frames      int                `json:"frames"`
	Columns     []string           `json:"columns"`
	Final       map[string]float64 `json:"final,omitempty"`
}

// Save writes meta and the recorded rows under a new run directory and
// returns its id. ID and Timestamp are assigned here; Columns and the
// finite values of the last row come from the table.
func (s *Store) Save(meta RunMetadata, table Table) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.System, now.UnixNano())
	meta.Timestamp = now
	meta.Columns = table.Columns()
	if rows := table.Rows(); len(rows) > 0 {
		last := rows[len(rows)-1]
		meta.Final = make(map[string]float64, len(last))
		for i, col := range meta.Columns {
			// JSON has no NaN or Inf.
			if i < len(last) && !math.IsNaN(last[i]) && !math.IsInf(last[i], 0) {
				meta.Final[col] = last[i]
			}
		}
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeMetadata(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, "states.csv"), table); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeStates(path string, table Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"time"}, table.Columns()...)); err != nil {
		return err
	}

	times := table.Times()
	for i, values := range table.Rows() {
		row := make([]string, 0, len(values)+1)
		row = append(row, strconv.FormatFloat(times[i], 'g', -1, 64))
		for _, v := range values {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the runs in the store, oldest first. Directories without
// readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Series is a run's states.csv read back.
type Series struct {
	Columns []string
	Times   []float64
	Rows    [][]float64
}

// Column returns one column across all rows.
func (s *Series) Column(name string) ([]float64, bool) {
	idx := -1
	for i, c := range s.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row[idx]
	}
	return out, true
}

func (s *Store) LoadSeries(runID string) (*Series, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRun, err)
	}
	if len(records) == 0 || len(records[0]) == 0 || records[0][0] != "time" {
		return nil, fmt.Errorf("%w: missing header", ErrCorruptRun)
	}

	series := &Series{
		Columns: records[0][1:],
		Times:   make([]float64, 0, len(records)-1),
		Rows:    make([][]float64, 0, len(records)-1),
	}
	for i, record := range records[1:] {
		values := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", ErrCorruptRun, i+1, j, err)
			}
			values[j] = v
		}
		series.Times = append(series.Times, values[0])
		series.Rows = append(series.Rows, values[1:])
	}
	return series, nil
}
