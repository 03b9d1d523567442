package value

// Header is the ordered list of column names a backend returned. Decoders
// must resolve indices by name rather than position: the graph backend
// reorders SELECT-list columns alphabetically, the Datalog backend
// preserves literal order.
type Header []string

// Row is one ordered tuple of cell values, positionally aligned with the
// ResultSet's Headers.
type Row []Value

// ResultSet is what every Backend.ExecuteQuery call returns.
type ResultSet struct {
	Headers Header
	Rows    []Row
}

// ColumnIndex resolves a header name to its position. This is the single
// chokepoint every decoder in internal/decode must use instead of
// positional indexing.
func (rs ResultSet) ColumnIndex(name string) (int, bool) {
	for i, h := range rs.Headers {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Get returns the cell at (row, column name), or Null if the column is
// absent or the row is too short.
func (rs ResultSet) Get(row Row, name string) Value {
	idx, ok := rs.ColumnIndex(name)
	if !ok || idx >= len(row) {
		return Null()
	}
	return row[idx]
}
