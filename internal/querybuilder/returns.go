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

// ReturnsQueryBuilder finds specs whose return string matches a pattern.
// Non-regex matching is substring containment, so "{:ok" finds
// "{:ok, User.t()} | {:error, reason()}".
type ReturnsQueryBuilder struct {
	Pattern       string
	Project       string
	UseRegex      bool
	ModulePattern *string
	Limit         int
}

func (b ReturnsQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := ValidateLimit(b.Limit); err != nil {
		return "", err
	}
	if err := querycond.ValidateRegexPatterns(b.UseRegex, &b.Pattern, b.ModulePattern); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	matchFn := "str_includes(return_string, $pattern)"
	if b.UseRegex {
		matchFn = "regex_matches(return_string, $pattern)"
	}
	moduleFilter := "true"
	if b.ModulePattern != nil {
		if b.UseRegex {
			moduleFilter = "regex_matches(module, $module_pattern)"
		} else {
			moduleFilter = "str_includes(module, $module_pattern)"
		}
	}

	return fmt.Sprintf(`?[project, module, name, arity, return_string, line] :=
    *specs{project, module, name, arity, return_string, line},
    project == $project,
    %s,
    %s
:order module, name, arity
:limit %d`, matchFn, moduleFilter, b.Limit), nil
}

func (b ReturnsQueryBuilder) compileGraph() string {
	op := "CONTAINS"
	if b.UseRegex {
		op = "=~"
	}

	conditions := []string{
		"s.project = $project",
		fmt.Sprintf("s.return_string %s $pattern", op),
	}
	if b.ModulePattern != nil {
		conditions = append(conditions, fmt.Sprintf("s.module %s $module_pattern", op))
	}
	where := conditions[0]
	for _, c := range conditions[1:] {
		where += " AND " + c
	}

	return fmt.Sprintf(`MATCH (s:Spec)
WHERE %s
RETURN s.project AS project, s.module AS module, s.name AS name, s.arity AS arity, s.return_string AS return_string, s.line AS line
ORDER BY s.module, s.name, s.arity
LIMIT %d`, where, b.Limit)
}

func (b ReturnsQueryBuilder) Parameters() map[string]value.Value {
	params := map[string]value.Value{
		"pattern": value.String(b.Pattern),
		"project": value.String(b.Project),
	}
	if b.ModulePattern != nil {
		params["module_pattern"] = value.String(*b.ModulePattern)
	}
	return params
}

// FindReturns compiles and runs a returns query.
func FindReturns(ctx context.Context, be backend.Backend, b ReturnsQueryBuilder) ([]ReturnEntry, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Returns", Message: err.Error()}
	}

	layout, err := decode.NewRowLayout(rs, "project", "module", "name", "arity", "return_string", "line")
	if err != nil {
		return nil, err
	}
	var out []ReturnEntry
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
		out = append(out, ReturnEntry{
			Project:      project,
			Module:       module,
			Name:         name,
			Arity:        layout.Int64Or(row, "arity", 0),
			ReturnString: layout.StringOr(row, "return_string", ""),
			Line:         layout.Int64Or(row, "line", 0),
		})
	}
	return out, nil
}
