package querybuilder

import (
	"context"
	"fmt"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/decode"
	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/value"
)

// SearchKind selects what a search query scans: module names or function
// names.
type SearchKind int

const (
	SearchModules SearchKind = iota
	SearchFunctions
)

// SearchQueryBuilder is a name search over modules or functions. Non-regex
// matching is substring containment.
type SearchQueryBuilder struct {
	Kind     SearchKind
	Pattern  string
	Project  string
	UseRegex bool
	Limit    int
}

func (b SearchQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := ValidateLimit(b.Limit); err != nil {
		return "", err
	}
	if err := querycond.ValidateRegexPatterns(b.UseRegex, &b.Pattern); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	matchFn := "str_includes"
	if b.UseRegex {
		matchFn = "regex_matches"
	}

	if b.Kind == SearchModules {
		return fmt.Sprintf(`?[project, name, source] :=
    *modules{project, name, source},
    project == $project,
    %s(name, $pattern)
:order name
:limit %d`, matchFn, b.Limit), nil
	}
	return fmt.Sprintf(`?[project, module, name, arity, return_type] :=
    *functions{project, module, name, arity, return_type},
    project == $project,
    %s(name, $pattern)
:order module, name, arity
:limit %d`, matchFn, b.Limit), nil
}

func (b SearchQueryBuilder) compileGraph() string {
	op := "CONTAINS"
	if b.UseRegex {
		op = "=~"
	}
	if b.Kind == SearchModules {
		return fmt.Sprintf(`MATCH (m:Module)
WHERE m.project = $project
  AND m.name %s $pattern
RETURN m.project AS project, m.name AS name, m.source AS source
ORDER BY m.name
LIMIT %d`, op, b.Limit)
	}
	return fmt.Sprintf(`MATCH (f:Function)
WHERE f.project = $project
  AND f.name %s $pattern
RETURN f.project AS project, f.module AS module, f.name AS name, f.arity AS arity, f.return_type AS return_type
ORDER BY f.module, f.name, f.arity
LIMIT %d`, op, b.Limit)
}

func (b SearchQueryBuilder) Parameters() map[string]value.Value {
	return map[string]value.Value{
		"pattern": value.String(b.Pattern),
		"project": value.String(b.Project),
	}
}

// SearchForModules runs a module-name search.
func SearchForModules(ctx context.Context, be backend.Backend, b SearchQueryBuilder) ([]ModuleResult, error) {
	b.Kind = SearchModules
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Search", Message: err.Error()}
	}

	layout, err := decode.NewRowLayout(rs, "project", "name", "source")
	if err != nil {
		return nil, err
	}
	var out []ModuleResult
	for _, row := range rs.Rows {
		project, ok := layout.String(row, "project")
		if !ok {
			continue
		}
		name, ok := layout.String(row, "name")
		if !ok {
			continue
		}
		out = append(out, ModuleResult{
			Project: project,
			Name:    name,
			Source:  layout.StringOr(row, "source", "unknown"),
		})
	}
	return out, nil
}

// SearchForFunctions runs a function-name search.
func SearchForFunctions(ctx context.Context, be backend.Backend, b SearchQueryBuilder) ([]FunctionResult, error) {
	b.Kind = SearchFunctions
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Search", Message: err.Error()}
	}

	layout, err := decode.NewRowLayout(rs, "project", "module", "name", "arity", "return_type")
	if err != nil {
		return nil, err
	}
	var out []FunctionResult
	for _, row := range rs.Rows {
		project, ok := layout.String(row, "project")
		if !ok {
			continue
		}
		module, ok := layout.String(row, "module")
		if !ok {
			continue
		}
		name, ok := layout.String(row, "name")
		if !ok {
			continue
		}
		out = append(out, FunctionResult{
			Project:    project,
			Module:     module,
			Name:       name,
			Arity:      layout.Int64Or(row, "arity", 0),
			ReturnType: layout.StringOr(row, "return_type", ""),
		})
	}
	return out, nil
}
