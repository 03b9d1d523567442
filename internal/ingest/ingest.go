package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/cortexlog"
	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/schema"
	"github.com/cortexdb/query-core/internal/value"
)

// ProgressReporter receives ingestion progress callbacks; the CLI binds a
// progress bar to it, tests a no-op.
type ProgressReporter interface {
	OnSectionStart(section string, totalRows int)
	OnRowsWritten(section string, n int)
	OnSectionComplete(section string)
}

type nopProgress struct{}

func (nopProgress) OnSectionStart(string, int) {}
func (nopProgress) OnRowsWritten(string, int)  {}
func (nopProgress) OnSectionComplete(string)   {}

// Result summarizes one import.
type Result struct {
	SchemasCreated    []string
	SchemasExisted    []string
	Modules           int
	Functions         int
	Calls             int
	StructFields      int
	FunctionLocations int
	Specs             int
	Types             int
}

func (r Result) totalRows() int {
	return r.Modules + r.Functions + r.Calls + r.StructFields + r.FunctionLocations + r.Specs + r.Types
}

// Importer drives the ingestion pipeline against one backend.
type Importer struct {
	Backend  backend.Backend
	Progress ProgressReporter
	log      *logrus.Entry
}

func NewImporter(be backend.Backend) *Importer {
	return &Importer{
		Backend:  be,
		Progress: nopProgress{},
		log:      cortexlog.For("ingest"),
	}
}

// ImportFile reads, parses, and imports a call-graph JSON file.
func (im *Importer) ImportFile(ctx context.Context, project, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &cortexerr.ImportError{Kind: cortexerr.FileReadFailed, Detail: path, Cause: err}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &cortexerr.ImportError{Kind: cortexerr.JsonParseFailed, Detail: path, Cause: err}
	}
	return im.Import(ctx, project, doc)
}

// Import writes one parsed document into the backend: schema, clear,
// vertices/rows, then derived relationships on the graph backend. A
// failed chunk aborts the import; chunks already committed stay, and the
// caller re-runs against a cleared project.
func (im *Importer) Import(ctx context.Context, project string, doc Document) (*Result, error) {
	started := time.Now()
	result := &Result{}

	if err := im.ensureSchema(ctx, result); err != nil {
		return nil, err
	}
	if err := im.clearProject(ctx, project); err != nil {
		return nil, err
	}

	steps := []struct {
		section string
		run     func() (int, error)
	}{
		{"modules", func() (int, error) { return im.importModules(ctx, project, doc) }},
		{"functions", func() (int, error) { return im.importFunctions(ctx, project, doc) }},
		{"function_locations", func() (int, error) { return im.importFunctionLocations(ctx, project, doc) }},
		{"calls", func() (int, error) { return im.importCalls(ctx, project, doc) }},
		{"struct_fields", func() (int, error) { return im.importStructFields(ctx, project, doc) }},
		{"specs", func() (int, error) { return im.importSpecs(ctx, project, doc) }},
		{"types", func() (int, error) { return im.importTypes(ctx, project, doc) }},
	}
	counts := map[string]*int{
		"modules":            &result.Modules,
		"functions":          &result.Functions,
		"function_locations": &result.FunctionLocations,
		"calls":              &result.Calls,
		"struct_fields":      &result.StructFields,
		"specs":              &result.Specs,
		"types":              &result.Types,
	}

	for _, step := range steps {
		n, err := step.run()
		if err != nil {
			im.recordAudit(ctx, project, started, result, err)
			return nil, &cortexerr.ImportError{Kind: cortexerr.ImportFailed, Detail: step.section, Cause: err}
		}
		*counts[step.section] = n
		im.log.WithFields(logrus.Fields{"section": step.section, "rows": n}).Info("imported section")
	}

	if im.Backend.Dialect() == querycond.DialectGraph {
		if err := im.materializeEdges(ctx, project, doc); err != nil {
			im.recordAudit(ctx, project, started, result, err)
			return nil, &cortexerr.ImportError{Kind: cortexerr.ImportFailed, Detail: "relationships", Cause: err}
		}
	}

	im.recordAudit(ctx, project, started, result, nil)
	return result, nil
}

func (im *Importer) ensureSchema(ctx context.Context, result *Result) error {
	var compiler schema.Compiler = schema.DatalogCompiler{}
	if im.Backend.Dialect() == querycond.DialectGraph {
		compiler = schema.GraphCompiler{}
	}
	for _, rel := range schema.CoreRelations {
		created, err := im.Backend.TryCreateRelation(ctx, rel, compiler.CreateDDL(rel))
		if err != nil {
			return &cortexerr.ImportError{Kind: cortexerr.SchemaCreationFailed, Detail: rel.Name, Cause: err}
		}
		if created {
			result.SchemasCreated = append(result.SchemasCreated, rel.Name)
		} else {
			result.SchemasExisted = append(result.SchemasExisted, rel.Name)
		}
	}
	return nil
}

func (im *Importer) clearProject(ctx context.Context, project string) error {
	for _, rel := range schema.CoreRelations {
		if _, err := im.Backend.DeleteByProject(ctx, rel, project); err != nil {
			return &cortexerr.ImportError{Kind: cortexerr.ClearFailed, Detail: rel.Name, Cause: err}
		}
	}
	return nil
}

func (im *Importer) insertSection(ctx context.Context, section string, rel schema.Relation, rows []value.Row) (int, error) {
	im.Progress.OnSectionStart(section, len(rows))
	defer im.Progress.OnSectionComplete(section)
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := im.Backend.InsertRows(ctx, rel, rows)
	if err != nil {
		return n, err
	}
	im.Progress.OnRowsWritten(section, n)
	return n, nil
}

func (im *Importer) importModules(ctx context.Context, project string, doc Document) (int, error) {
	modules := doc.ModuleSet()
	sort.Strings(modules)
	rows := make([]value.Row, 0, len(modules))
	for _, m := range modules {
		rows = append(rows, value.Row{
			value.String(project), value.String(m),
			value.String(""), value.String("unknown"),
		})
	}
	return im.insertSection(ctx, "modules", schema.Modules, rows)
}

// importFunctions emits one function row per declared spec identity,
// taking the first clause's strings, matching the one-row-per-function
// contract.
func (im *Importer) importFunctions(ctx context.Context, project string, doc Document) (int, error) {
	var rows []value.Row
	modules := sortedKeys(doc.Specs)
	for _, module := range modules {
		for _, spec := range doc.Specs[module] {
			returnType, args := "", ""
			if len(spec.Clauses) > 0 {
				returnType = strings.Join(spec.Clauses[0].ReturnStrings, " | ")
				args = strings.Join(spec.Clauses[0].InputStrings, ", ")
			}
			rows = append(rows, value.Row{
				value.String(project), value.String(module), value.String(spec.Name), value.Int(spec.Arity),
				value.String(returnType), value.String(args), value.String("unknown"),
			})
		}
	}
	return im.insertSection(ctx, "functions", schema.Functions, rows)
}

func (im *Importer) importFunctionLocations(ctx context.Context, project string, doc Document) (int, error) {
	var rows []value.Row
	for _, module := range sortedKeys(doc.FunctionLocations) {
		clauses := doc.FunctionLocations[module]
		for _, key := range sortedKeys(clauses) {
			loc := clauses[key]
			loc.normalize(key)
			if loc.Line < loc.StartLine || loc.Line > loc.EndLine {
				im.log.WithFields(logrus.Fields{
					"module": module, "clause": key,
				}).Warn("clause line outside its start/end range")
			}
			rows = append(rows, value.Row{
				value.String(project), value.String(module), value.String(loc.Name), value.Int(intOr(loc.Arity, 0)), value.Int(loc.Line),
				value.String(loc.File),
				value.String(strOr(loc.SourceFileAbsolute, "")),
				value.Int(intOr(loc.Column, 0)),
				value.String(loc.Kind),
				value.Int(loc.StartLine),
				value.Int(loc.EndLine),
				value.String(strOr(loc.Pattern, "")),
				value.String(strOr(loc.Guard, "")),
				value.String(strOr(loc.SourceSha, "")),
				value.String(strOr(loc.AstSha, "")),
				value.Int(intOr(loc.Complexity, 1)),
				value.Int(intOr(loc.MaxNestingDepth, 0)),
				value.String(strOr(loc.GeneratedBy, "")),
				value.String(strOr(loc.MacroSource, "")),
			})
		}
	}
	return im.insertSection(ctx, "function_locations", schema.FunctionLocations, rows)
}

func (im *Importer) importCalls(ctx context.Context, project string, doc Document) (int, error) {
	rows := make([]value.Row, 0, len(doc.Calls))
	for _, call := range doc.Calls {
		rows = append(rows, value.Row{
			value.String(project),
			value.String(call.Caller.Module),
			value.String(strOr(call.Caller.Function, "")),
			value.String(call.Callee.Module),
			value.String(call.Callee.Function),
			value.Int(call.Callee.Arity),
			value.String(call.Caller.File),
			value.Int(intOr(call.Caller.Line, 0)),
			value.Int(intOr(call.Caller.Column, 0)),
			value.String(call.CallType),
			value.String(strOr(call.Caller.Kind, "")),
			value.String(strings.Join(call.Callee.Args, ", ")),
		})
	}
	return im.insertSection(ctx, "calls", schema.Calls, rows)
}

func (im *Importer) importStructFields(ctx context.Context, project string, doc Document) (int, error) {
	var rows []value.Row
	for _, module := range sortedKeys(doc.Structs) {
		for _, f := range doc.Structs[module].Fields {
			rows = append(rows, value.Row{
				value.String(project), value.String(module), value.String(f.Field),
				value.String(f.Default), value.Bool(f.Required), value.String(strOr(f.InferredType, "")),
			})
		}
	}
	return im.insertSection(ctx, "struct_fields", schema.StructFields, rows)
}

// importSpecs stores one row per spec. Multi-clause inputs and returns
// are preserved as arrays on the graph backend and joined with ", " and
// " | " on the Datalog backend, so multi-clause specs round-trip either
// way.
func (im *Importer) importSpecs(ctx context.Context, project string, doc Document) (int, error) {
	graph := im.Backend.Dialect() == querycond.DialectGraph
	var rows []value.Row
	for _, module := range sortedKeys(doc.Specs) {
		for _, spec := range doc.Specs[module] {
			var inputs, returns, fulls []string
			for _, c := range spec.Clauses {
				inputs = append(inputs, strings.Join(c.InputStrings, ", "))
				returns = append(returns, strings.Join(c.ReturnStrings, " | "))
				fulls = append(fulls, c.Full)
			}
			var inputsCell, returnsCell value.Value
			if graph {
				inputsCell = value.Array(stringValues(inputs))
				returnsCell = value.Array(stringValues(returns))
			} else {
				inputsCell = value.String(strings.Join(inputs, ", "))
				returnsCell = value.String(strings.Join(returns, " | "))
			}
			rows = append(rows, value.Row{
				value.String(project), value.String(module), value.String(spec.Name), value.Int(spec.Arity),
				value.String(spec.Kind), value.Int(spec.Line),
				inputsCell, returnsCell,
				value.String(strings.Join(fulls, "\n")),
			})
		}
	}
	return im.insertSection(ctx, "specs", schema.Specs, rows)
}

func (im *Importer) importTypes(ctx context.Context, project string, doc Document) (int, error) {
	var rows []value.Row
	for _, module := range sortedKeys(doc.Types) {
		for _, t := range doc.Types[module] {
			rows = append(rows, value.Row{
				value.String(project), value.String(module), value.String(t.Name),
				value.String(t.Kind), value.String(strings.Join(t.Params, ", ")),
				value.Int(t.Line), value.String(t.Definition),
			})
		}
	}
	return im.insertSection(ctx, "types", schema.Types, rows)
}

// clauseID is the composite identifier a CALLS edge's caller_clause_id
// carries: it names the FunctionLocation row by key.
func clauseID(module, name string, arity, line int64) string {
	return module + ":" + name + "/" + strconv.FormatInt(arity, 10) + ":" + strconv.FormatInt(line, 10)
}

// resolveCallerClause finds the clause in the caller's module whose line
// range contains the call line.
func resolveCallerClause(doc Document, module string, line int64) string {
	clauses, ok := doc.FunctionLocations[module]
	if !ok {
		return ""
	}
	for _, key := range sortedKeys(clauses) {
		loc := clauses[key]
		loc.normalize(key)
		if line >= loc.StartLine && line <= loc.EndLine {
			return clauseID(module, loc.Name, intOr(loc.Arity, 0), loc.Line)
		}
	}
	return ""
}

// materializeEdges creates the derived relationships after all vertices
// exist: module-defines edges, function-has_clause edges, module-
// has_field edges, and function-calls edges carrying caller_clause_id.
func (im *Importer) materializeEdges(ctx context.Context, project string, doc Document) error {
	writer, ok := im.Backend.(backend.EdgeWriter)
	if !ok {
		return nil
	}

	p := cypherQuote(project)
	structural := []string{
		`MATCH (m:Module {project: ` + p + `}), (f:Function {project: ` + p + `}) WHERE f.module = m.name CREATE (m)-[:DEFINES]->(f)`,
		`MATCH (m:Module {project: ` + p + `}), (s:Spec {project: ` + p + `}) WHERE s.module = m.name CREATE (m)-[:DEFINES]->(s)`,
		`MATCH (m:Module {project: ` + p + `}), (t:Type {project: ` + p + `}) WHERE t.module = m.name CREATE (m)-[:DEFINES]->(t)`,
		`MATCH (f:Function {project: ` + p + `}), (loc:FunctionLocation {project: ` + p + `}) WHERE loc.module = f.module AND loc.name = f.name AND loc.arity = f.arity CREATE (f)-[:HAS_CLAUSE]->(loc)`,
		`MATCH (m:Module {project: ` + p + `}), (sf:StructField {project: ` + p + `}) WHERE sf.module = m.name CREATE (m)-[:HAS_FIELD]->(sf)`,
	}
	for _, script := range structural {
		if err := writer.ExecCypher(ctx, script); err != nil {
			return err
		}
	}

	for start := 0; start < len(doc.Calls); start += backend.MaxChunkSize {
		end := start + backend.MaxChunkSize
		if end > len(doc.Calls) {
			end = len(doc.Calls)
		}
		var entries []string
		for _, call := range doc.Calls[start:end] {
			line := intOr(call.Caller.Line, 0)
			entries = append(entries, fmt.Sprintf(
				`{caller_module: %s, caller_function: %s, callee_module: %s, callee_function: %s, callee_arity: %d, file: %s, line: %d, caller_clause_id: %s}`,
				cypherQuote(call.Caller.Module),
				cypherQuote(strOr(call.Caller.Function, "")),
				cypherQuote(call.Callee.Module),
				cypherQuote(call.Callee.Function),
				call.Callee.Arity,
				cypherQuote(call.Caller.File),
				line,
				cypherQuote(resolveCallerClause(doc, call.Caller.Module, line)),
			))
		}
		if len(entries) == 0 {
			continue
		}
		script := `UNWIND [` + strings.Join(entries, ", ") + `] AS row
MATCH (caller:Function {project: ` + p + `}), (callee:Function {project: ` + p + `})
WHERE caller.module = row.caller_module
  AND row.caller_function STARTS WITH caller.name
  AND callee.module = row.callee_module
  AND callee.name = row.callee_function
  AND callee.arity = row.callee_arity
CREATE (caller)-[:CALLS {file: row.file, line: row.line, caller_clause_id: row.caller_clause_id}]->(callee)`
		if err := writer.ExecCypher(ctx, script); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) recordAudit(ctx context.Context, project string, started time.Time, result *Result, importErr error) {
	auditor, ok := im.Backend.(backend.ImportAuditor)
	if !ok {
		return
	}
	run := backend.ImportRun{
		ID:           uuid.NewString(),
		Project:      project,
		StartedAt:    started,
		FinishedAt:   time.Now(),
		Status:       "ok",
		RowsInserted: result.totalRows(),
	}
	if importErr != nil {
		run.Status = "failed"
		run.Error = importErr.Error()
	}
	if err := auditor.RecordImportRun(ctx, run); err != nil {
		im.log.WithError(err).Warn("failed to record import run")
	}
}

// cypherQuote renders a string as a double-quoted Cypher literal with
// backslashes and quotes escaped.
func cypherQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func stringValues(ss []string) []value.Value {
	out := make([]value.Value, len(ss))
	for i, s := range ss {
		out[i] = value.String(s)
	}
	return out
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
