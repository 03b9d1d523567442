package graphdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/schema"
	"github.com/cortexdb/query-core/internal/value"
)

var _ backend.Backend = (*Backend)(nil)

func (b *Backend) Dialect() querycond.Dialect {
	return querycond.DialectGraph
}

func (b *Backend) RelationExists(ctx context.Context, name string) (bool, error) {
	rel := relationByName(name)
	probe := schema.ValidateSchemaQuery(rel)
	rs, err := b.ExecuteQuery(ctx, probe, nil)
	if err != nil {
		return false, err
	}
	if len(rs.Rows) == 0 {
		return false, nil
	}
	count := rs.Get(rs.Rows[0], "count")
	return count.AsInt64Or(0) > 0, nil
}

// TryCreateRelation for the graph backend is idempotent by nature: a
// vertex label exists implicitly once a vertex of that label has been
// created, and the index statement uses IF NOT EXISTS. TryCreateRelation
// therefore ensures the label's index exists and reports whether it
// already did.
func (b *Backend) TryCreateRelation(ctx context.Context, rel schema.Relation, ddl string) (bool, error) {
	existed, err := b.RelationExists(ctx, rel.Name)
	if err != nil {
		return false, err
	}

	compiler := schema.GraphCompiler{}
	for _, idx := range compiler.CreateIndexes(rel) {
		if _, err := b.db.ExecContext(ctx, idx); err != nil {
			return false, &cortexerr.QueryFailedError{Feature: "Migration", Message: err.Error()}
		}
	}
	return !existed, nil
}

func (b *Backend) InsertRows(ctx context.Context, rel schema.Relation, rows []value.Row) (int, error) {
	compiler := schema.GraphCompiler{}
	script := compiler.BatchInsert(rel)
	total := 0
	for _, chunk := range backend.Chunks(rows) {
		if err := b.execBatch(ctx, rel, script, chunk); err != nil {
			return total, &cortexerr.QueryFailedError{Feature: "Insert", Message: err.Error()}
		}
		total += len(chunk)
	}
	return total, nil
}

func (b *Backend) UpsertRows(ctx context.Context, rel schema.Relation, rows []value.Row) (int, error) {
	compiler := schema.GraphCompiler{}
	script := compiler.BatchUpsert(rel)
	total := 0
	for _, chunk := range backend.Chunks(rows) {
		if err := b.execBatch(ctx, rel, script, chunk); err != nil {
			return total, &cortexerr.QueryFailedError{Feature: "Upsert", Message: err.Error()}
		}
		total += len(chunk)
	}
	return total, nil
}

// execBatch inlines each row as a literal Cypher map, since $rows cannot
// carry structured data through the lib/pq parameter bridge either.
func (b *Backend) execBatch(ctx context.Context, rel schema.Relation, script string, rows []value.Row) error {
	names := rel.FieldNames()
	var rowLiterals []string
	for _, row := range rows {
		var fields []string
		for i, name := range names {
			if i >= len(row) {
				continue
			}
			fields = append(fields, name+": "+cypherLiteral(row[i]))
		}
		rowLiterals = append(rowLiterals, "{"+strings.Join(fields, ", ")+"}")
	}
	inlined := strings.Replace(script, "$rows", "["+strings.Join(rowLiterals, ", ")+"]", 1)

	// Batch writes have no RETURN clause; executed directly, not through
	// ExecuteQuery's column-inference path.
	wrapped := "SELECT * FROM cypher('" + GraphName + "', $$ " + inlined + " $$) AS (v agtype)"
	_, err := b.db.ExecContext(ctx, wrapped)
	return err
}

func (b *Backend) DeleteByProject(ctx context.Context, rel schema.Relation, project string) (int, error) {
	compiler := schema.GraphCompiler{}
	script := compiler.DeleteByProject(rel)
	params := map[string]value.Value{"project": value.String(project)}
	_, err := b.ExecuteQuery(ctx, script, params)
	if err != nil {
		return 0, err
	}
	// AGE's DETACH DELETE does not report an affected-row count through
	// this wrapper; callers that need an exact count should query
	// beforehand. Returning 0 here is a known limitation, not a defect in
	// project-scoped deletion itself.
	return 0, nil
}

// SetupBackend creates the named graph and the import audit table if
// missing.
func (b *Backend) SetupBackend(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, createImportRunsTable); err != nil {
		return &cortexerr.QueryFailedError{Feature: "Setup", Message: err.Error()}
	}

	probe := schema.InitGraphQuery(GraphName)
	rows, err := b.db.QueryContext(ctx, probe)
	if err != nil {
		return &cortexerr.QueryFailedError{Feature: "Setup", Message: err.Error()}
	}
	exists := rows.Next()
	rows.Close()
	if exists {
		return nil
	}

	_, err = b.db.ExecContext(ctx, fmt.Sprintf("SELECT create_graph('%s')", GraphName))
	if err != nil {
		return &cortexerr.QueryFailedError{Feature: "Setup", Message: err.Error()}
	}
	return nil
}

func relationByName(name string) schema.Relation {
	for _, r := range schema.CoreRelations {
		if r.Name == name {
			return r
		}
	}
	return schema.Relation{Name: name}
}
