// Package datalog implements the Backend interface on top of
// github.com/google/mangle, an embedded Datalog engine: a mutex-guarded
// fact store, schema fragments analyzed with analysis.AnalyzeOneUnit,
// and query evaluation via mengine.QueryContext.EvalQuery.
//
// Scripts arrive in the query dialect the builders emit (`*relation{...}`
// destructuring, `?[...] :=` result rules, `:order`/`:limit`
// terminators). ExecuteQuery inlines parameters, lowers the script to
// mangle source (see translate.go), evaluates the `result` predicate,
// and applies :order/:limit in Go to the decoded value.ResultSet —
// mangle has neither clause, and sorting/limiting an in-memory slice is
// the one deliberately stdlib-only step in the backend.
package datalog

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"
	"github.com/google/mangle/unionfind"
	"github.com/sirupsen/logrus"

	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/cortexlog"
	"github.com/cortexdb/query-core/internal/schema"
	"github.com/cortexdb/query-core/internal/value"
)

// Config bounds the engine's fact store.
type Config struct {
	FactLimit int
}

func DefaultConfig() Config {
	return Config{FactLimit: 100000}
}

// Engine is the Datalog-backend Backend implementation.
type Engine struct {
	config Config
	log    *logrus.Entry

	mu              sync.RWMutex
	store           factstore.ConcurrentFactStore
	baseStore       factstore.FactStoreWithRemove
	schemaFragments []parse.SourceUnit
	programInfo     *analysis.ProgramInfo
	queryContext    *mengine.QueryContext
	predicateIndex  map[string]ast.PredicateSym
	relationsMade   map[string]bool
}

func NewEngine(cfg Config) *Engine {
	base := factstore.NewSimpleInMemoryStore()
	return &Engine{
		config:         cfg,
		log:            cortexlog.For("backend.datalog"),
		baseStore:      base,
		store:          factstore.NewConcurrentFactStore(base),
		predicateIndex: make(map[string]ast.PredicateSym),
		relationsMade:  make(map[string]bool),
	}
}

// LoadRelationSchema registers one relation's predicate declaration, a
// mangle Decl built from the relation's field names by relationDecl, so
// that rows for that relation can subsequently be asserted as facts and
// queried.
func (e *Engine) LoadRelationSchema(rel schema.Relation) error {
	decl := relationDecl(rel)
	unit, err := parse.Unit(bytes.NewReader([]byte(decl)))
	if err != nil {
		return fmt.Errorf("parsing decl for %s: %w", rel.Name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.schemaFragments = append(e.schemaFragments, unit)
	return e.rebuildProgramLocked()
}

func (e *Engine) rebuildProgramLocked() error {
	var clauses []ast.Clause
	var decls []ast.Decl
	for _, frag := range e.schemaFragments {
		clauses = append(clauses, frag.Clauses...)
		decls = append(decls, frag.Decls...)
	}
	unit := parse.SourceUnit{Clauses: clauses, Decls: decls}

	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return err
	}
	e.programInfo = programInfo

	e.predicateIndex = make(map[string]ast.PredicateSym, len(programInfo.Decls))
	predToDecl := make(map[ast.PredicateSym]*ast.Decl, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		e.predicateIndex[sym.Symbol] = sym
		predToDecl[sym] = decl
	}

	predToRules := make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range programInfo.Rules {
		predToRules[clause.Head.Predicate] = append(predToRules[clause.Head.Predicate], clause)
	}

	e.queryContext = &mengine.QueryContext{
		PredToRules: predToRules,
		PredToDecl:  predToDecl,
		Store:       e.store,
	}
	return nil
}

// relationDecl renders a mangle Decl + base fact predicate declaration for
// a relation, in lieu of literal CozoScript ":create".
func relationDecl(rel schema.Relation) string {
	var b strings.Builder
	names := rel.FieldNames()
	b.WriteString("Decl ")
	b.WriteString(rel.Name)
	b.WriteString("(")
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strings.ToUpper(n[:1]) + n[1:])
	}
	b.WriteString(").\n")
	return b.String()
}

func (e *Engine) ExecuteQuery(ctx context.Context, script string, params map[string]value.Value) (value.ResultSet, error) {
	compiled, orderBy, limit, err := parseScript(script)
	if err != nil {
		return value.ResultSet{}, &cortexerr.QueryFailedError{Feature: "Datalog", Message: err.Error()}
	}
	compiled = inlineParams(compiled, params)

	lowered, err := translateScript(compiled)
	if err != nil {
		return value.ResultSet{}, &cortexerr.QueryFailedError{Feature: "Datalog", Message: err.Error()}
	}

	e.mu.Lock()
	var fragments []parse.SourceUnit
	fragments = append(fragments, e.schemaFragments...)
	unit, err := parse.Unit(bytes.NewReader([]byte(lowered.Source)))
	if err != nil {
		e.mu.Unlock()
		return value.ResultSet{}, &cortexerr.QueryFailedError{Feature: "Datalog", Message: err.Error()}
	}
	fragments = append(fragments, unit)

	var clauses []ast.Clause
	var decls []ast.Decl
	for _, f := range fragments {
		clauses = append(clauses, f.Clauses...)
		decls = append(decls, f.Decls...)
	}
	programInfo, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: clauses, Decls: decls}, nil)
	if err != nil {
		e.mu.Unlock()
		return value.ResultSet{}, &cortexerr.QueryFailedError{Feature: "Datalog", Message: err.Error()}
	}

	predToDecl := make(map[ast.PredicateSym]*ast.Decl, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		predToDecl[sym] = decl
	}
	predToRules := make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range programInfo.Rules {
		predToRules[clause.Head.Predicate] = append(predToRules[clause.Head.Predicate], clause)
	}
	qc := &mengine.QueryContext{PredToRules: predToRules, PredToDecl: predToDecl, Store: e.store}
	e.mu.Unlock()

	resultSym, ok := findPredicate(decls, "result")
	if !ok {
		return value.ResultSet{}, &cortexerr.QueryFailedError{Feature: "Datalog", Message: "compiled script has no result predicate"}
	}
	decl, ok := predToDecl[resultSym]
	if !ok || len(decl.Modes()) == 0 {
		return value.ResultSet{}, &cortexerr.QueryFailedError{Feature: "Datalog", Message: "result predicate has no evaluable mode"}
	}
	mode := decl.Modes()[0]

	headers := value.Header(lowered.Columns)
	queryAtom := ast.NewQuery(resultSym)

	var rows []value.Row
	err = qc.EvalQuery(queryAtom, mode, unionfind.New(), func(fact ast.Atom) error {
		row := make(value.Row, len(headers))
		for i := range headers {
			if i < len(fact.Args) {
				row[i] = baseTermToValue(fact.Args[i])
			} else {
				row[i] = value.Null()
			}
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return value.ResultSet{}, &cortexerr.QueryFailedError{Feature: "Datalog", Message: err.Error()}
	}

	rows = applyOrderAndLimit(headers, rows, orderBy, limit)
	return value.ResultSet{Headers: headers, Rows: rows}, nil
}

// inlineParams substitutes $name references with literal constants before
// the script is lowered to mangle; the engine has no bind-parameter bridge
// of its own.
func inlineParams(script string, params map[string]value.Value) string {
	out := script
	for name, v := range params {
		out = strings.ReplaceAll(out, "$"+name, datalogLiteral(v))
	}
	return out
}

func datalogLiteral(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return strconv.Quote(s)
	case value.KindInt:
		i, _ := v.AsInt64()
		return strconv.FormatInt(i, 10)
	case value.KindFloat:
		f, _ := v.AsFloat64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case value.KindBool:
		if v.AsBoolOr(false) {
			return "true"
		}
		return "false"
	default:
		return strconv.Quote(v.String())
	}
}

func findPredicate(decls []ast.Decl, name string) (ast.PredicateSym, bool) {
	for _, d := range decls {
		if d.DeclaredAtom.Predicate.Symbol == name {
			return d.DeclaredAtom.Predicate, true
		}
	}
	return ast.PredicateSym{}, false
}

// applyOrderAndLimit sorts rows by the named columns (a "-" prefix sorts
// descending) and truncates to limit, replacing mangle's missing
// :order/:limit support.
func applyOrderAndLimit(headers value.Header, rows []value.Row, orderBy []string, limit int) []value.Row {
	if len(orderBy) > 0 {
		type key struct {
			idx  int
			desc bool
		}
		keys := make([]key, 0, len(orderBy))
		for _, name := range orderBy {
			desc := strings.HasPrefix(name, "-")
			name = strings.TrimPrefix(name, "-")
			for i, h := range headers {
				if h == name {
					keys = append(keys, key{idx: i, desc: desc})
					break
				}
			}
		}
		sort.SliceStable(rows, func(i, j int) bool {
			for _, k := range keys {
				c := compareValues(rows[i][k.idx], rows[j][k.idx])
				if c != 0 {
					if k.desc {
						return c > 0
					}
					return c < 0
				}
			}
			return false
		})
	}
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func compareValues(a, b value.Value) int {
	if s1, ok := a.AsString(); ok {
		if s2, ok := b.AsString(); ok {
			return strings.Compare(s1, s2)
		}
	}
	if i1, ok := a.AsInt64(); ok {
		if i2, ok := b.AsInt64(); ok {
			switch {
			case i1 < i2:
				return -1
			case i1 > i2:
				return 1
			default:
				return 0
			}
		}
	}
	if f1, ok := a.AsFloat64(); ok {
		if f2, ok := b.AsFloat64(); ok {
			switch {
			case f1 < f2:
				return -1
			case f1 > f2:
				return 1
			default:
				return 0
			}
		}
	}
	return 0
}

// baseTermToValue converts an evaluated mangle term into the
// backend-neutral tagged value.
func baseTermToValue(t ast.BaseTerm) value.Value {
	c, ok := t.(ast.Constant)
	if !ok {
		return value.Null()
	}
	switch c.Type {
	case ast.StringType, ast.NameType, ast.BytesType:
		return value.String(c.Symbol)
	case ast.NumberType:
		return value.Int(c.NumValue)
	case ast.Float64Type:
		return value.Float(math.Float64frombits(uint64(c.NumValue)))
	default:
		return value.String(c.String())
	}
}
