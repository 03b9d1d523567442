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

// FunctionsQueryBuilder finds function signatures by module and name
// pattern, with an optional arity filter.
type FunctionsQueryBuilder struct {
	ModulePattern   string
	FunctionPattern string
	Arity           *int64
	Project         string
	UseRegex        bool
	Limit           int
}

func (b FunctionsQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := ValidateLimit(b.Limit); err != nil {
		return "", err
	}
	if err := querycond.ValidateRegexPatterns(b.UseRegex, &b.ModulePattern, &b.FunctionPattern); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	moduleCond := querycond.New("module", "module_pattern").Build(dialect, b.UseRegex)
	functionCond := querycond.New("name", "function_pattern").WithLeadingComma().Build(dialect, b.UseRegex)
	arityCond := querycond.OptionalConditionBuilder{
		Field: "arity", Param: "arity", LeadingComma: true,
	}.Build(dialect, b.Arity != nil, false)

	return fmt.Sprintf(`?[project, module, name, arity, args, return_type] :=
    *functions{project, module, name, arity, args, return_type},
    %s%s%s,
    project == $project
:order module, name, arity
:limit %d`, moduleCond, functionCond, arityCond, b.Limit), nil
}

func (b FunctionsQueryBuilder) compileGraph() string {
	match := "="
	if b.UseRegex {
		match = "=~"
	}
	arityCond := ""
	if b.Arity != nil {
		arityCond = "\n  AND f.arity = $arity"
	}
	return fmt.Sprintf(`MATCH (f:Function)
WHERE f.project = $project
  AND f.module %[1]s $module_pattern
  AND f.name %[1]s $function_pattern%[2]s
RETURN f.project AS project, f.module AS module, f.name AS name, f.arity AS arity, f.args AS args, f.return_type AS return_type
ORDER BY f.module, f.name, f.arity
LIMIT %[3]d`, match, arityCond, b.Limit)
}

func (b FunctionsQueryBuilder) Parameters() map[string]value.Value {
	params := map[string]value.Value{
		"module_pattern":   value.String(b.ModulePattern),
		"function_pattern": value.String(b.FunctionPattern),
		"project":          value.String(b.Project),
	}
	if b.Arity != nil {
		params["arity"] = value.Int(*b.Arity)
	}
	return params
}

// FindFunctions compiles and runs a functions query.
func FindFunctions(ctx context.Context, be backend.Backend, b FunctionsQueryBuilder) ([]FunctionSignature, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Function", Message: err.Error()}
	}

	layout, err := decode.NewRowLayout(rs, "project", "module", "name", "arity", "args", "return_type")
	if err != nil {
		return nil, err
	}
	var out []FunctionSignature
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
		out = append(out, FunctionSignature{
			Project:    project,
			Module:     module,
			Name:       name,
			Arity:      layout.Int64Or(row, "arity", 0),
			Args:       layout.StringOr(row, "args", ""),
			ReturnType: layout.StringOr(row, "return_type", ""),
		})
	}
	return out, nil
}
