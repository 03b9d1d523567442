package graphdb

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexerr"
)

var _ backend.EdgeWriter = (*Backend)(nil)
var _ backend.ImportAuditor = (*Backend)(nil)

// createImportRunsTable is the bookkeeping side catalog the ingestion
// pipeline writes one row into per import. It lives outside the graph
// proper, so plain SQL applies.
const createImportRunsTable = `CREATE TABLE IF NOT EXISTS import_runs (
	id UUID PRIMARY KEY,
	project TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	rows_inserted BIGINT NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT ''
)`

// ExecCypher runs a statement-only Cypher script (no RETURN clause)
// through the graph wrapper. Used by the ingestion pipeline to
// materialize derived edges after vertex inserts.
func (b *Backend) ExecCypher(ctx context.Context, script string) error {
	wrapped := "SELECT * FROM cypher('" + GraphName + "', $$ " + script + " $$) AS (v agtype)"
	if _, err := b.db.ExecContext(ctx, wrapped); err != nil {
		return &cortexerr.QueryFailedError{Feature: "Graph", Message: err.Error()}
	}
	return nil
}

// RecordImportRun appends one row to the import audit trail.
func (b *Backend) RecordImportRun(ctx context.Context, run backend.ImportRun) error {
	query, args, err := sq.Insert("import_runs").
		Columns("id", "project", "started_at", "finished_at", "status", "rows_inserted", "error").
		Values(run.ID, run.Project, run.StartedAt, run.FinishedAt, run.Status, run.RowsInserted, run.Error).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return &cortexerr.QueryFailedError{Feature: "ImportAudit", Message: err.Error()}
	}
	return nil
}
