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

// TypesQueryBuilder finds type definitions by module and name pattern.
type TypesQueryBuilder struct {
	ModulePattern string
	NamePattern   string
	Project       string
	UseRegex      bool
	Limit         int
}

func (b TypesQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := ValidateLimit(b.Limit); err != nil {
		return "", err
	}
	if err := querycond.ValidateRegexPatterns(b.UseRegex, &b.ModulePattern, &b.NamePattern); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	moduleCond := querycond.New("module", "module_pattern").Build(dialect, b.UseRegex)
	nameCond := querycond.New("name", "name_pattern").WithLeadingComma().Build(dialect, b.UseRegex)

	return fmt.Sprintf(`?[project, module, name, kind, params, line, definition] :=
    *types{project, module, name, kind, params, line, definition},
    %s%s,
    project == $project
:order module, name
:limit %d`, moduleCond, nameCond, b.Limit), nil
}

func (b TypesQueryBuilder) compileGraph() string {
	match := "="
	if b.UseRegex {
		match = "=~"
	}
	return fmt.Sprintf(`MATCH (t:Type)
WHERE t.project = $project
  AND t.module %[1]s $module_pattern
  AND t.name %[1]s $name_pattern
RETURN t.project AS project, t.module AS module, t.name AS name, t.kind AS kind, t.params AS params, t.line AS line, t.definition AS definition
ORDER BY t.module, t.name
LIMIT %[2]d`, match, b.Limit)
}

func (b TypesQueryBuilder) Parameters() map[string]value.Value {
	return map[string]value.Value{
		"module_pattern": value.String(b.ModulePattern),
		"name_pattern":   value.String(b.NamePattern),
		"project":        value.String(b.Project),
	}
}

// FindTypes compiles and runs a types query.
func FindTypes(ctx context.Context, be backend.Backend, b TypesQueryBuilder) ([]TypeInfo, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Types", Message: err.Error()}
	}

	layout, err := decode.NewRowLayout(rs, "project", "module", "name", "kind", "params", "line", "definition")
	if err != nil {
		return nil, err
	}
	var out []TypeInfo
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
		out = append(out, TypeInfo{
			Project:    project,
			Module:     module,
			Name:       name,
			Kind:       layout.StringOr(row, "kind", ""),
			Params:     layout.StringOr(row, "params", ""),
			Line:       layout.Int64Or(row, "line", 0),
			Definition: layout.StringOr(row, "definition", ""),
		})
	}
	return out, nil
}
