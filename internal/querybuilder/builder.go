// Package querybuilder implements one builder per query family (section
// 4.6): Calls, Dependencies, ReverseTrace, Path, Duplicates, Unused,
// LargeFunctions, Returns, StructUsage, Types, Functions, Locations,
// Search, and Clusters. Each builder emits a script and parameters for
// either backend dialect.
package querybuilder

import (
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/value"
)

// Dialect re-exports querycond.Dialect so callers only need to import this
// package.
type Dialect = querycond.Dialect

const (
	DialectDatalog = querycond.DialectDatalog
	DialectGraph   = querycond.DialectGraph
)

// Builder is implemented by every query family.
type Builder interface {
	Compile(dialect Dialect) (script string, err error)
	Parameters() map[string]value.Value
}

// Direction selects which side of a call/dependency edge the user's
// pattern matches (section glossary).
type Direction int

const (
	DirectionFrom Direction = iota
	DirectionTo
)

type DependencyDirection int

const (
	DirectionOutgoing DependencyDirection = iota
	DirectionIncoming
)

// ValidateLimit enforces the [1,1000] range every query family honors.
func ValidateLimit(limit int) error {
	if limit < 1 || limit > 1000 {
		return &cortexerr.LimitRangeError{Limit: limit}
	}
	return nil
}

// FileFilter is the optional scope/exclude glob filtering shared by the
// query families, applied client-side against the decoded "file" column
// rather than compiled into either dialect's script, since neither
// dialect has a glob primitive.
type FileFilter struct {
	Scope   []string
	Exclude []string
}
