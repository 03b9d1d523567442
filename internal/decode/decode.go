// Package decode maps per-backend columnar results back into typed
// records. Column indices are resolved from headers by name — never by
// position — because the graph backend orders select-list columns
// alphabetically while the Datalog backend preserves literal order.
//
// Rows shorter than the layout requires, or whose required string fields
// are null, are skipped silently: partial rows arise when deleting
// concurrently and must not crash the query.
package decode

import (
	"fmt"

	"github.com/cortexdb/query-core/internal/value"
)

// RowLayout holds the resolved column index for each field a decoder
// needs, bound once per result set.
type RowLayout struct {
	rs  value.ResultSet
	idx map[string]int
}

// NewRowLayout resolves the given column names against the result set's
// headers. A missing required column is an error; decoding never starts
// against a result shape that cannot satisfy the layout.
func NewRowLayout(rs value.ResultSet, required ...string) (*RowLayout, error) {
	l := &RowLayout{rs: rs, idx: make(map[string]int, len(required))}
	for _, name := range required {
		i, ok := rs.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("missing column %q in result headers %v", name, rs.Headers)
		}
		l.idx[name] = i
	}
	return l, nil
}

// String returns the named column as a string; ok is false when the cell
// is absent, null, or not a string, which callers treat as "skip row".
func (l *RowLayout) String(row value.Row, name string) (string, bool) {
	i, ok := l.idx[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i].AsString()
}

// StringOr returns the named column as a string, or def on any mismatch.
func (l *RowLayout) StringOr(row value.Row, name, def string) string {
	if s, ok := l.String(row, name); ok {
		return s
	}
	return def
}

// Int64Or returns the named column as an int64, or def on any mismatch.
func (l *RowLayout) Int64Or(row value.Row, name string, def int64) int64 {
	i, ok := l.idx[name]
	if !ok || i >= len(row) {
		return def
	}
	return row[i].AsInt64Or(def)
}

// BoolOr returns the named column as a bool, or def on any mismatch.
func (l *RowLayout) BoolOr(row value.Row, name string, def bool) bool {
	i, ok := l.idx[name]
	if !ok || i >= len(row) {
		return def
	}
	return row[i].AsBoolOr(def)
}
