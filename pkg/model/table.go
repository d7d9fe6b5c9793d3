// Package model holds the core data types shared across the pipeline
// engine: the process/job declarations, the channel table that carries
// values between processes, and the request/event envelopes used for
// channel-based communication with the status surface and run ledger.
package model

import "fmt"

// Table is the minimal rectangular container passed between processes.
// The full channel container (glob/CSV creators, lazy readers) is an
// external collaborator; Table only carries what process/job expansion
// needs: named, ordered columns and equal-length rows.
type Table struct {
	cols []string
	rows [][]any
}

// NewTable builds a table from column names and row-major values. Every
// row must have the same length as cols.
func NewTable(cols []string, rows [][]any) (*Table, error) {
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("model: row %d has %d values, want %d columns", i, len(row), len(cols))
		}
	}
	return &Table{cols: append([]string(nil), cols...), rows: rows}, nil
}

// Columns returns the ordered column names.
func (t *Table) Columns() []string { return t.cols }

// NRow returns the number of rows.
func (t *Table) NRow() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns the named values of row i as a map for template rendering.
func (t *Table) Row(i int) map[string]any {
	out := make(map[string]any, len(t.cols))
	for j, c := range t.cols {
		out[c] = t.rows[i][j]
	}
	return out
}

// Concat horizontally concatenates tables in order, as required when
// multiple upstream processes feed one downstream input (spec §4.7). All
// tables must have the same row count; column names are kept in producer
// order without deduplication, upstream-declared order wins on conflicts.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return &Table{}, nil
	}
	n := tables[0].NRow()
	var cols []string
	for _, t := range tables {
		if t.NRow() != n {
			return nil, fmt.Errorf("model: row-count mismatch concatenating channels: %d vs %d", t.NRow(), n)
		}
		cols = append(cols, t.cols...)
	}
	rows := make([][]any, n)
	for i := 0; i < n; i++ {
		var row []any
		for _, t := range tables {
			row = append(row, t.rows[i]...)
		}
		rows[i] = row
	}
	return &Table{cols: cols, rows: rows}, nil
}
