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

// StructUsageQueryBuilder finds specs that accept or return a given type:
// the pattern is matched against both the inputs string and the return
// string, and a spec matching either side qualifies.
type StructUsageQueryBuilder struct {
	TypePattern   string
	Project       string
	UseRegex      bool
	ModulePattern *string
	Limit         int
}

func (b StructUsageQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := ValidateLimit(b.Limit); err != nil {
		return "", err
	}
	if err := querycond.ValidateRegexPatterns(b.UseRegex, &b.TypePattern, b.ModulePattern); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	matchFn := "str_includes"
	if b.UseRegex {
		matchFn = "regex_matches"
	}
	moduleFilter := "true"
	if b.ModulePattern != nil {
		moduleFilter = matchFn + "(module, $module_pattern)"
	}

	// Two result rules: one for specs accepting the type, one for specs
	// returning it; the union is the answer.
	return fmt.Sprintf(`?[project, module, name, arity, inputs_string, return_string, line] :=
    *specs{project, module, name, arity, inputs_string, return_string, line},
    project == $project,
    %[1]s(inputs_string, $type_pattern),
    %[2]s

?[project, module, name, arity, inputs_string, return_string, line] :=
    *specs{project, module, name, arity, inputs_string, return_string, line},
    project == $project,
    %[1]s(return_string, $type_pattern),
    %[2]s

:order module, name, arity
:limit %[3]d`, matchFn, moduleFilter, b.Limit), nil
}

func (b StructUsageQueryBuilder) compileGraph() string {
	op := "CONTAINS"
	if b.UseRegex {
		op = "=~"
	}
	moduleFilter := ""
	if b.ModulePattern != nil {
		moduleFilter = fmt.Sprintf("\n  AND s.module %s $module_pattern", op)
	}

	return fmt.Sprintf(`MATCH (s:Spec)
WHERE s.project = $project
  AND (s.inputs_string %[1]s $type_pattern OR s.return_string %[1]s $type_pattern)%[2]s
RETURN s.project AS project, s.module AS module, s.name AS name, s.arity AS arity, s.inputs_string AS inputs_string, s.return_string AS return_string, s.line AS line
ORDER BY s.module, s.name, s.arity
LIMIT %[3]d`, op, moduleFilter, b.Limit)
}

func (b StructUsageQueryBuilder) Parameters() map[string]value.Value {
	params := map[string]value.Value{
		"type_pattern": value.String(b.TypePattern),
		"project":      value.String(b.Project),
	}
	if b.ModulePattern != nil {
		params["module_pattern"] = value.String(*b.ModulePattern)
	}
	return params
}

// FindStructUsage compiles and runs a struct-usage query.
func FindStructUsage(ctx context.Context, be backend.Backend, b StructUsageQueryBuilder) ([]StructUsageEntry, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "StructUsage", Message: err.Error()}
	}

	layout, err := decode.NewRowLayout(rs, "project", "module", "name", "arity", "inputs_string", "return_string", "line")
	if err != nil {
		return nil, err
	}
	var out []StructUsageEntry
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
		out = append(out, StructUsageEntry{
			Project:      project,
			Module:       module,
			Name:         name,
			Arity:        layout.Int64Or(row, "arity", 0),
			InputsString: layout.StringOr(row, "inputs_string", ""),
			ReturnString: layout.StringOr(row, "return_string", ""),
			Line:         layout.Int64Or(row, "line", 0),
		})
	}
	return out, nil
}
