// Package backend defines the uniform interface every storage engine
// implements, plus shared helpers (row chunking) used by both
// implementations.
package backend

import (
	"context"
	"time"

	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/schema"
	"github.com/cortexdb/query-core/internal/value"
)

// MaxChunkSize bounds a single insert/upsert call: rows are chunked to
// batches of at most this size, and a failed chunk fails the whole call.
const MaxChunkSize = 500

// Backend is the uniform interface the query and ingestion layers program
// against. There are two implementations: backend/datalog (mangle) and
// backend/graphdb (postgres + AGE-style cypher).
type Backend interface {
	// Dialect names the script dialect this backend executes; query
	// builders dispatch their Compile on it.
	Dialect() querycond.Dialect
	ExecuteQuery(ctx context.Context, script string, params map[string]value.Value) (value.ResultSet, error)
	RelationExists(ctx context.Context, name string) (bool, error)
	TryCreateRelation(ctx context.Context, rel schema.Relation, ddl string) (bool, error)
	InsertRows(ctx context.Context, rel schema.Relation, rows []value.Row) (int, error)
	UpsertRows(ctx context.Context, rel schema.Relation, rows []value.Row) (int, error)
	DeleteByProject(ctx context.Context, rel schema.Relation, project string) (int, error)
	SetupBackend(ctx context.Context) error
}

// EdgeWriter is the optional interface the graph backend implements for
// materializing derived relationships (defines, has_clause, has_field,
// calls) after vertex inserts. The Datalog backend stores relations only
// and does not implement it.
type EdgeWriter interface {
	ExecCypher(ctx context.Context, script string) error
}

// ImportRun is one row of the graph backend's import audit trail.
type ImportRun struct {
	ID           string
	Project      string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       string
	RowsInserted int
	Error        string
}

// ImportAuditor is the optional interface for backends that keep an
// import audit trail in a side catalog.
type ImportAuditor interface {
	RecordImportRun(ctx context.Context, run ImportRun) error
}

// Chunks splits rows into slices of at most MaxChunkSize, the shared
// helper both backend implementations' InsertRows/UpsertRows call.
func Chunks(rows []value.Row) [][]value.Row {
	if len(rows) == 0 {
		return nil
	}
	var out [][]value.Row
	for start := 0; start < len(rows); start += MaxChunkSize {
		end := start + MaxChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
