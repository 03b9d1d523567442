package querybuilder

import (
	"context"
	"fmt"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/value"
)

// DependenciesQueryBuilder finds module dependencies: Outgoing answers
// "what does module X call?", Incoming answers "who calls module X?".
// Self-references (calls within the same module) are excluded.
type DependenciesQueryBuilder struct {
	Direction     DependencyDirection
	ModulePattern string
	Project       string
	UseRegex      bool
	Limit         int
}

func (b DependenciesQueryBuilder) filterField() string {
	if b.Direction == DirectionIncoming {
		return "callee_module"
	}
	return "caller_module"
}

func (b DependenciesQueryBuilder) orderClause() string {
	if b.Direction == DirectionIncoming {
		return "caller_module, caller_name, caller_arity, callee_function, callee_arity, call_line"
	}
	return "callee_module, callee_function, callee_arity, caller_module, caller_name, caller_arity, call_line"
}

func (b DependenciesQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := ValidateLimit(b.Limit); err != nil {
		return "", err
	}
	if err := querycond.ValidateRegexPatterns(b.UseRegex, &b.ModulePattern); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	moduleCond := querycond.New(b.filterField(), "module_pattern").Build(dialect, b.UseRegex)

	return fmt.Sprintf(`?[caller_module, caller_name, caller_arity, caller_kind, caller_start_line, caller_end_line, callee_module, callee_function, callee_arity, file, call_line] :=
    *calls{project, caller_module, caller_function, callee_module, callee_function, callee_arity, file, line: call_line},
    *function_locations{project, module: caller_module, name: caller_name, arity: caller_arity, kind: caller_kind, start_line: caller_start_line, end_line: caller_end_line},
    starts_with(caller_function, caller_name),
    call_line >= caller_start_line,
    call_line <= caller_end_line,
    callee_function != '%%',
    %s,
    caller_module != callee_module,
    project == $project
:order %s
:limit %d`, moduleCond, b.orderClause(), b.Limit), nil
}

func (b DependenciesQueryBuilder) compileGraph() string {
	match := "="
	if b.UseRegex {
		match = "=~"
	}

	var moduleFilter, order string
	if b.Direction == DirectionIncoming {
		moduleFilter = "c.callee_module " + match + " $module_pattern"
		order = "c.caller_module, caller_name, caller_arity"
	} else {
		moduleFilter = "c.caller_module " + match + " $module_pattern"
		order = "c.callee_module, c.callee_function, c.callee_arity"
	}

	return fmt.Sprintf(`MATCH (c:Call), (loc:FunctionLocation)
WHERE c.project = $project
  AND %s
  AND c.caller_module <> c.callee_module
  AND c.callee_function <> '%%'
  AND loc.module = c.caller_module
  AND c.caller_function STARTS WITH loc.name
  AND c.line >= loc.start_line
  AND c.line <= loc.end_line
RETURN c.caller_module AS caller_module, loc.name AS caller_name, loc.arity AS caller_arity,
       loc.kind AS caller_kind, loc.start_line AS caller_start_line, loc.end_line AS caller_end_line,
       c.callee_module AS callee_module, c.callee_function AS callee_function, c.callee_arity AS callee_arity,
       c.file AS file, c.line AS call_line
ORDER BY %s
LIMIT %d`, moduleFilter, order, b.Limit)
}

func (b DependenciesQueryBuilder) Parameters() map[string]value.Value {
	return map[string]value.Value{
		"module_pattern": value.String(b.ModulePattern),
		"project":        value.String(b.Project),
	}
}

// FindDependencies compiles and runs a dependencies query.
func FindDependencies(ctx context.Context, be backend.Backend, b DependenciesQueryBuilder) ([]Call, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Dependency", Message: err.Error()}
	}
	return decodeCallRows(rs)
}
