package datalog

import (
	"context"
	"fmt"

	"github.com/google/mangle/ast"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/schema"
	"github.com/cortexdb/query-core/internal/value"
)

var _ backend.Backend = (*Engine)(nil)

func (e *Engine) Dialect() querycond.Dialect {
	return querycond.DialectDatalog
}

func (e *Engine) RelationExists(ctx context.Context, name string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.relationsMade[name], nil
}

// TryCreateRelation registers the relation's predicate declaration. It is
// idempotent: a relation already declared returns (false, nil) rather
// than an error.
func (e *Engine) TryCreateRelation(ctx context.Context, rel schema.Relation, ddl string) (bool, error) {
	e.mu.RLock()
	already := e.relationsMade[rel.Name]
	e.mu.RUnlock()
	if already {
		e.log.WithField("relation", rel.Name).Debug("relation already exists")
		return false, nil
	}

	if err := e.LoadRelationSchema(rel); err != nil {
		return false, &cortexerr.QueryFailedError{Feature: "Migration", Message: err.Error()}
	}

	e.mu.Lock()
	e.relationsMade[rel.Name] = true
	e.mu.Unlock()
	return true, nil
}

func (e *Engine) InsertRows(ctx context.Context, rel schema.Relation, rows []value.Row) (int, error) {
	total := 0
	for _, chunk := range backend.Chunks(rows) {
		if err := e.insertChunk(rel, chunk); err != nil {
			return total, &cortexerr.QueryFailedError{Feature: "Insert", Message: err.Error()}
		}
		total += len(chunk)
	}
	return total, nil
}

// UpsertRows replaces rows matching the same key fields; mangle has no
// native MERGE, so replace-by-key is implemented by removing any existing
// fact with the same key tuple before inserting.
func (e *Engine) UpsertRows(ctx context.Context, rel schema.Relation, rows []value.Row) (int, error) {
	total := 0
	for _, chunk := range backend.Chunks(rows) {
		if err := e.upsertChunk(rel, chunk); err != nil {
			return total, &cortexerr.QueryFailedError{Feature: "Upsert", Message: err.Error()}
		}
		total += len(chunk)
	}
	return total, nil
}

func (e *Engine) upsertChunk(rel schema.Relation, rows []value.Row) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sym, ok := e.predicateIndex[rel.Name]
	if !ok {
		return fmt.Errorf("relation %s not declared", rel.Name)
	}

	keyLen := len(rel.KeyFields)
	names := rel.FieldNames()
	for _, row := range rows {
		if len(row) != len(names) {
			return fmt.Errorf("relation %s expects %d columns, got %d", rel.Name, len(names), len(row))
		}

		keys := make([]string, keyLen)
		for i := 0; i < keyLen; i++ {
			keys[i] = valueToConstant(row[i]).String()
		}
		var stale []ast.Atom
		_ = e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
			if len(atom.Args) < keyLen {
				return nil
			}
			for i := 0; i < keyLen; i++ {
				c, ok := atom.Args[i].(ast.Constant)
				if !ok || c.String() != keys[i] {
					return nil
				}
			}
			stale = append(stale, atom)
			return nil
		})
		for _, atom := range stale {
			e.baseStore.Remove(atom)
		}

		args := make([]ast.BaseTerm, len(row))
		for i, v := range row {
			args[i] = valueToConstant(v)
		}
		e.store.Add(ast.Atom{Predicate: sym, Args: args})
	}
	return nil
}

func (e *Engine) insertChunk(rel schema.Relation, rows []value.Row) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sym, ok := e.predicateIndex[rel.Name]
	if !ok {
		return fmt.Errorf("relation %s not declared", rel.Name)
	}

	names := rel.FieldNames()
	for _, row := range rows {
		if len(row) != len(names) {
			return fmt.Errorf("relation %s expects %d columns, got %d", rel.Name, len(names), len(row))
		}
		args := make([]ast.BaseTerm, len(row))
		for i, v := range row {
			args[i] = valueToConstant(v)
		}
		e.store.Add(ast.Atom{Predicate: sym, Args: args})
	}
	return nil
}

func (e *Engine) DeleteByProject(ctx context.Context, rel schema.Relation, project string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sym, ok := e.predicateIndex[rel.Name]
	if !ok {
		return 0, nil
	}

	projectIdx := -1
	for i, n := range rel.KeyFieldNames() {
		if n == "project" {
			projectIdx = i
			break
		}
	}
	if projectIdx < 0 {
		return 0, fmt.Errorf("relation %s has no project key field", rel.Name)
	}

	var toRemove []ast.Atom
	_ = e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		if projectIdx < len(atom.Args) {
			if c, ok := atom.Args[projectIdx].(ast.Constant); ok && c.Symbol == project {
				toRemove = append(toRemove, atom)
			}
		}
		return nil
	})

	removed := 0
	for _, atom := range toRemove {
		if e.baseStore.Remove(atom) {
			removed++
		}
	}
	return removed, nil
}

// SetupBackend is a no-op for the Datalog backend: mangle has no separate
// "graph" to create, and schema-version tracking is derived from relation
// existence, not persisted.
func (e *Engine) SetupBackend(ctx context.Context) error {
	return nil
}

func valueToConstant(v value.Value) ast.Constant {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return ast.String(s)
	case value.KindInt:
		i, _ := v.AsInt64()
		return ast.Number(i)
	case value.KindFloat:
		f, _ := v.AsFloat64()
		return ast.Float64(f)
	case value.KindBool:
		if v.AsBoolOr(false) {
			return ast.TrueConstant
		}
		return ast.FalseConstant
	default:
		return ast.String(v.String())
	}
}
