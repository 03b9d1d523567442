// Package querycond implements the regex pattern validator and the
// condition builders the query families compose their WHERE clauses
// from.
package querycond

// Dialect selects which backend's WHERE-fragment syntax a condition
// builder emits.
type Dialect int

const (
	DialectDatalog Dialect = iota
	DialectGraph
)
