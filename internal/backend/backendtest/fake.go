// Package backendtest provides an in-memory Backend double used across the
// test suites in migrate, querybuilder, and ingest, in place of a live
// mangle engine or Postgres connection. It stores rows keyed by relation
// name and answers ExecuteQuery by replaying a script->ResultSet stub.
package backendtest

import (
	"context"
	"sync"

	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/schema"
	"github.com/cortexdb/query-core/internal/value"
)

// Fake is a minimal Backend implementation for unit tests.
type Fake struct {
	mu sync.RWMutex

	// FakeDialect is the dialect the fake reports; zero value is
	// DialectDatalog.
	FakeDialect querycond.Dialect

	relationsCreated map[string]bool
	rows             map[string][]value.Row

	// QueryStub lets a test install a canned ResultSet for a given
	// script so that query-builder compile output can be exercised
	// end-to-end without a live backend.
	QueryStub func(script string, params map[string]value.Value) (value.ResultSet, error)
}

func New() *Fake {
	return &Fake{
		relationsCreated: make(map[string]bool),
		rows:             make(map[string][]value.Row),
	}
}

func (f *Fake) Dialect() querycond.Dialect {
	return f.FakeDialect
}

func (f *Fake) ExecuteQuery(ctx context.Context, script string, params map[string]value.Value) (value.ResultSet, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.QueryStub != nil {
		return f.QueryStub(script, params)
	}
	return value.ResultSet{}, nil
}

func (f *Fake) RelationExists(ctx context.Context, name string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.relationsCreated[name], nil
}

func (f *Fake) TryCreateRelation(ctx context.Context, rel schema.Relation, ddl string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.relationsCreated[rel.Name] {
		return false, nil
	}
	f.relationsCreated[rel.Name] = true
	return true, nil
}

func (f *Fake) InsertRows(ctx context.Context, rel schema.Relation, rows []value.Row) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[rel.Name] = append(f.rows[rel.Name], rows...)
	return len(rows), nil
}

func (f *Fake) UpsertRows(ctx context.Context, rel schema.Relation, rows []value.Row) (int, error) {
	return f.InsertRows(ctx, rel, rows)
}

func (f *Fake) DeleteByProject(ctx context.Context, rel schema.Relation, project string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[rel.Name][:0]
	deleted := 0
	projectIdx := -1
	for i, name := range rel.KeyFieldNames() {
		if name == "project" {
			projectIdx = i
			break
		}
	}
	for _, row := range f.rows[rel.Name] {
		if projectIdx >= 0 && projectIdx < len(row) {
			if p, ok := row[projectIdx].AsString(); ok && p == project {
				deleted++
				continue
			}
		}
		kept = append(kept, row)
	}
	f.rows[rel.Name] = kept
	return deleted, nil
}

func (f *Fake) SetupBackend(ctx context.Context) error {
	return nil
}

// Rows exposes the rows stored for a relation, for test assertions.
func (f *Fake) Rows(relationName string) []value.Row {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.rows[relationName]
}
