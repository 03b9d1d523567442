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

// LocationsQueryBuilder finds function clause positions by function name,
// with optional module and arity filters. One row per clause.
type LocationsQueryBuilder struct {
	ModulePattern   *string
	FunctionPattern string
	Arity           *int64
	Project         string
	UseRegex        bool
	Limit           int
}

func (b LocationsQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := ValidateLimit(b.Limit); err != nil {
		return "", err
	}
	if err := querycond.ValidateRegexPatterns(b.UseRegex, b.ModulePattern, &b.FunctionPattern); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	fnCond := querycond.New("name", "function_pattern").Build(dialect, b.UseRegex)
	moduleCond := querycond.OptionalConditionBuilder{
		Field: "module", Param: "module_pattern", LeadingComma: true, SupportsRegex: true,
	}.Build(dialect, b.ModulePattern != nil, b.UseRegex)
	arityCond := querycond.OptionalConditionBuilder{
		Field: "arity", Param: "arity", LeadingComma: true,
	}.Build(dialect, b.Arity != nil, false)

	return fmt.Sprintf(`?[project, file, line, start_line, end_line, module, kind, name, arity, pattern, guard] :=
    *function_locations{project, module, name, arity, line, file, kind, start_line, end_line, pattern, guard},
    %s%s%s,
    project == $project
:order module, name, arity, line
:limit %d`, fnCond, moduleCond, arityCond, b.Limit), nil
}

func (b LocationsQueryBuilder) compileGraph() string {
	match := "="
	if b.UseRegex {
		match = "=~"
	}
	moduleCond := ""
	if b.ModulePattern != nil {
		moduleCond = fmt.Sprintf("\n  AND loc.module %s $module_pattern", match)
	}
	arityCond := ""
	if b.Arity != nil {
		arityCond = "\n  AND loc.arity = $arity"
	}
	return fmt.Sprintf(`MATCH (loc:FunctionLocation)
WHERE loc.project = $project
  AND loc.name %s $function_pattern%s%s
RETURN loc.project AS project, loc.file AS file, loc.line AS line, loc.start_line AS start_line, loc.end_line AS end_line, loc.module AS module, loc.kind AS kind, loc.name AS name, loc.arity AS arity, loc.pattern AS pattern, loc.guard AS guard
ORDER BY loc.module, loc.name, loc.arity, loc.line
LIMIT %d`, match, moduleCond, arityCond, b.Limit)
}

func (b LocationsQueryBuilder) Parameters() map[string]value.Value {
	params := map[string]value.Value{
		"function_pattern": value.String(b.FunctionPattern),
		"project":          value.String(b.Project),
	}
	if b.ModulePattern != nil {
		params["module_pattern"] = value.String(*b.ModulePattern)
	}
	if b.Arity != nil {
		params["arity"] = value.Int(*b.Arity)
	}
	return params
}

// FindLocations compiles and runs a locations query.
func FindLocations(ctx context.Context, be backend.Backend, b LocationsQueryBuilder) ([]Location, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Location", Message: err.Error()}
	}

	layout, err := decode.NewRowLayout(rs, "project", "file", "line", "start_line", "end_line", "module", "kind", "name", "arity", "pattern", "guard")
	if err != nil {
		return nil, err
	}
	var out []Location
	for _, row := range rs.Rows {
		project, ok := layout.String(row, "project")
		if !ok {
			continue
		}
		file, ok := layout.String(row, "file")
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
		out = append(out, Location{
			Project:   project,
			File:      file,
			Line:      layout.Int64Or(row, "line", 0),
			StartLine: layout.Int64Or(row, "start_line", 0),
			EndLine:   layout.Int64Or(row, "end_line", 0),
			Module:    module,
			Kind:      layout.StringOr(row, "kind", ""),
			Name:      name,
			Arity:     layout.Int64Or(row, "arity", 0),
			Pattern:   layout.StringOr(row, "pattern", ""),
			Guard:     layout.StringOr(row, "guard", ""),
		})
	}
	return out, nil
}
