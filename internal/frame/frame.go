// Package frame holds the in-memory tables passed between pipeline stages and
// handed to checkpoint sinks.
package frame

import (
	"fmt"

	"prep/internal/record"
)

// Frame is a positional table: every row has exactly len(Columns) values.
//
// Values are scalars as produced by record.Flatten (string, json.Number,
// bool, nil) for raw stages, or typed Go values (int64, string) for derived
// tables.
type Frame struct {
	Columns []string
	Rows    [][]any

	index map[string]int
}

// New returns an empty frame with the given columns.
func New(columns ...string) *Frame {
	f := &Frame{Columns: append([]string(nil), columns...)}
	f.reindex()
	return f
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.Columns))
	for i, c := range f.Columns {
		if _, dup := f.index[c]; !dup {
			f.index[c] = i
		}
	}
}

// FromRecords builds a frame from flattened records. Columns are the union
// of all paths in first-seen order; a record lacking a path gets nil there.
func FromRecords(recs []*record.Flat) *Frame {
	f := New()
	for _, r := range recs {
		for _, p := range r.Paths() {
			if _, ok := f.index[p]; !ok {
				f.index[p] = len(f.Columns)
				f.Columns = append(f.Columns, p)
			}
		}
	}

	f.Rows = make([][]any, 0, len(recs))
	for _, r := range recs {
		row := make([]any, len(f.Columns))
		for _, p := range r.Paths() {
			v, _ := r.Get(p)
			row[f.index[p]] = v
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Index returns the position of column, or -1.
func (f *Frame) Index(column string) int {
	if f.index == nil {
		f.reindex()
	}
	if i, ok := f.index[column]; ok {
		return i
	}
	return -1
}

// Has reports whether column exists.
func (f *Frame) Has(column string) bool { return f.Index(column) >= 0 }

// Append adds one row. The row is stored as given (not copied).
func (f *Frame) Append(row []any) error {
	if len(row) != len(f.Columns) {
		return fmt.Errorf("frame: row has %d values, want %d", len(row), len(f.Columns))
	}
	f.Rows = append(f.Rows, row)
	return nil
}

// Column returns the values of one column in row order.
func (f *Frame) Column(column string) ([]any, bool) {
	i := f.Index(column)
	if i < 0 {
		return nil, false
	}
	out := make([]any, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = row[i]
	}
	return out, true
}

// Filter returns a frame sharing f's columns with the rows for which keep
// returns true. Row slices are shared with f. kept holds the original
// positions of the retained rows.
func (f *Frame) Filter(keep func(row []any) bool) (out *Frame, kept []int) {
	out = New(f.Columns...)
	for i, row := range f.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
			kept = append(kept, i)
		}
	}
	return out, kept
}
