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

// LargeFunctionsQueryBuilder finds functions whose clause spans at least
// MinLines lines, largest first.
type LargeFunctionsQueryBuilder struct {
	MinLines         int64
	ModulePattern    *string
	Project          string
	UseRegex         bool
	IncludeGenerated bool
	Limit            int
}

func (b LargeFunctionsQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := ValidateLimit(b.Limit); err != nil {
		return "", err
	}
	if err := querycond.ValidateRegexPatterns(b.UseRegex, b.ModulePattern); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	moduleFilter := ""
	if b.ModulePattern != nil {
		if b.UseRegex {
			moduleFilter = ",\n    regex_matches(module, $module_pattern)"
		} else {
			moduleFilter = ",\n    str_includes(module, $module_pattern)"
		}
	}
	generatedFilter := ""
	if !b.IncludeGenerated {
		generatedFilter = ",\n    generated_by == \"\""
	}

	return fmt.Sprintf(`?[module, name, arity, start_line, end_line, lines, file, generated_by] :=
    *function_locations{project, module, name, arity, line, start_line, end_line, file, generated_by},
    project == $project,
    lines = end_line - start_line + 1,
    lines >= $min_lines%s%s

:order -lines, module, name
:limit %d`, moduleFilter, generatedFilter, b.Limit), nil
}

func (b LargeFunctionsQueryBuilder) compileGraph() string {
	match := "="
	if b.UseRegex {
		match = "=~"
	}

	conditions := []string{
		"loc.project = $project",
		"(loc.end_line - loc.start_line + 1) >= $min_lines",
	}
	if b.ModulePattern != nil {
		conditions = append(conditions, "loc.module "+match+" $module_pattern")
	}
	if !b.IncludeGenerated {
		conditions = append(conditions, "loc.generated_by = ''")
	}

	where := conditions[0]
	for _, c := range conditions[1:] {
		where += "\n  AND " + c
	}

	return fmt.Sprintf(`MATCH (loc:FunctionLocation)
WHERE %s
WITH loc.module as module, loc.name as name, loc.arity as arity,
     loc.start_line as start_line, loc.end_line as end_line,
     loc.end_line - loc.start_line + 1 as lines,
     loc.file as file, loc.generated_by as generated_by
ORDER BY lines DESC, module, name
LIMIT %d
RETURN module, name, arity, start_line, end_line, lines, file, generated_by`, where, b.Limit)
}

func (b LargeFunctionsQueryBuilder) Parameters() map[string]value.Value {
	params := map[string]value.Value{
		"project":   value.String(b.Project),
		"min_lines": value.Int(b.MinLines),
	}
	if b.ModulePattern != nil {
		params["module_pattern"] = value.String(*b.ModulePattern)
	}
	return params
}

// FindLargeFunctions compiles and runs a large-functions query.
func FindLargeFunctions(ctx context.Context, be backend.Backend, b LargeFunctionsQueryBuilder) ([]LargeFunction, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "LargeFunctions", Message: err.Error()}
	}

	layout, err := decode.NewRowLayout(rs, "module", "name", "arity", "start_line", "end_line", "lines", "file", "generated_by")
	if err != nil {
		return nil, err
	}
	var out []LargeFunction
	for _, row := range rs.Rows {
		module, ok := layout.String(row, "module")
		if !ok {
			continue
		}
		name, ok := layout.String(row, "name")
		if !ok {
			continue
		}
		out = append(out, LargeFunction{
			Module:      module,
			Name:        name,
			Arity:       layout.Int64Or(row, "arity", 0),
			StartLine:   layout.Int64Or(row, "start_line", 0),
			EndLine:     layout.Int64Or(row, "end_line", 0),
			Lines:       layout.Int64Or(row, "lines", 0),
			File:        layout.StringOr(row, "file", ""),
			GeneratedBy: layout.StringOr(row, "generated_by", ""),
		})
	}
	return out, nil
}
