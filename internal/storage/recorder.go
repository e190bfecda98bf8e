package storage

import (
	"fmt"

	"github.com/san-kum/leibniz/internal/command"
)

// Source is the simulation state a Recorder samples.
type Source interface {
	Names() []string
	Snapshot() command.Bindings
	Steps() int
}

// Recorder is a scheduler entity that appends one row of the flattened
// state per refresh. Scalars take one column named after the variable,
// vectors one column per component, name[i].
type Recorder struct {
	src Source
	dt  float64

	columns []string
	times   []float64
	rows    [][]float64
}

// NewRecorder timestamps rows as steps * dt.
func NewRecorder(src Source, dt float64) *Recorder {
	return &Recorder{src: src, dt: dt}
}

func (r *Recorder) Refresh() {
	snap := r.src.Snapshot()
	names := r.src.Names()
	if r.columns == nil {
		r.columns = columnsOf(names, snap)
	}

	row := make([]float64, 0, len(r.columns))
	for _, name := range names {
		row = append(row, snap[name].Flatten()...)
	}
	r.times = append(r.times, float64(r.src.Steps())*r.dt)
	r.rows = append(r.rows, row)
}

func columnsOf(names []string, snap command.Bindings) []string {
	cols := make([]string, 0, len(names))
	for _, name := range names {
		v := snap[name]
		if v.IsScalar() {
			cols = append(cols, name)
			continue
		}
		dim, _ := v.Dimension()
		for i := 0; i < dim; i++ {
			cols = append(cols, fmt.Sprintf("%s[%d]", name, i))
		}
	}
	return cols
}

func (r *Recorder) Columns() []string { return r.columns }

func (r *Recorder) Times() []float64 { return r.times }

func (r *Recorder) Rows() [][]float64 { return r.rows }

func (r *Recorder) Len() int { return len(r.rows) }
