package querybuilder

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/decode"
	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/value"
)

// CallsQueryBuilder finds call edges in either direction. From answers
// "what does this function call?", To answers "who calls this function?".
// Call rows are joined with function_locations to attach the caller's
// arity, kind and line range; struct calls (callee_function == '%') are
// excluded.
type CallsQueryBuilder struct {
	Direction       Direction
	ModulePattern   string
	FunctionPattern string
	Arity           *int64
	Project         string
	UseRegex        bool
	Limit           int
}

func (b CallsQueryBuilder) filterFields() (module, function, arity string) {
	if b.Direction == DirectionTo {
		return "callee_module", "callee_function", "callee_arity"
	}
	return "caller_module", "caller_name", "caller_arity"
}

func (b CallsQueryBuilder) orderClause() string {
	if b.Direction == DirectionTo {
		return "callee_module, callee_function, callee_arity, caller_module, caller_name, caller_arity"
	}
	return "caller_module, caller_name, caller_arity, call_line, callee_module, callee_function, callee_arity"
}

func (b CallsQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := ValidateLimit(b.Limit); err != nil {
		return "", err
	}
	if err := querycond.ValidateRegexPatterns(b.UseRegex, &b.ModulePattern, &b.FunctionPattern); err != nil {
		return "", err
	}

	moduleField, functionField, arityField := b.filterFields()
	if dialect == DialectGraph {
		return b.compileGraph(moduleField, functionField, arityField), nil
	}

	moduleCond := querycond.New(moduleField, "module_pattern").Build(dialect, b.UseRegex)
	functionCond := querycond.New(functionField, "function_pattern").WithLeadingComma().Build(dialect, b.UseRegex)
	arityCond := querycond.OptionalConditionBuilder{
		Field: arityField, Param: "arity", LeadingComma: true,
	}.Build(dialect, b.Arity != nil, false)

	return fmt.Sprintf(`?[caller_module, caller_name, caller_arity, caller_kind, caller_start_line, caller_end_line, callee_module, callee_function, callee_arity, file, call_line] :=
    *calls{project, caller_module, caller_function, callee_module, callee_function, callee_arity, file, line: call_line},
    *function_locations{project, module: caller_module, name: caller_name, arity: caller_arity, kind: caller_kind, start_line: caller_start_line, end_line: caller_end_line},
    starts_with(caller_function, caller_name),
    call_line >= caller_start_line,
    call_line <= caller_end_line,
    callee_function != '%%',
    %s%s%s,
    project == $project
:order %s
:limit %d`, moduleCond, functionCond, arityCond, b.orderClause(), b.Limit), nil
}

func (b CallsQueryBuilder) compileGraph(moduleField, functionField, arityField string) string {
	match := "="
	if b.UseRegex {
		match = "=~"
	}

	var moduleCond, functionCond string
	if b.Direction == DirectionTo {
		moduleCond = "c." + moduleField + " " + match + " $module_pattern"
		functionCond = "c." + functionField + " " + match + " $function_pattern"
	} else {
		moduleCond = "c.caller_module " + match + " $module_pattern"
		functionCond = "loc.name " + match + " $function_pattern"
	}

	arityCond := ""
	if b.Arity != nil {
		field := "c." + arityField
		if b.Direction == DirectionFrom {
			field = "loc.arity"
		}
		arityCond = "\n  AND " + field + " = $arity"
	}

	var order string
	if b.Direction == DirectionTo {
		order = "c.callee_module, c.callee_function, c.callee_arity, c.caller_module, caller_name, caller_arity"
	} else {
		order = "c.caller_module, caller_name, caller_arity, call_line, c.callee_module, c.callee_function, c.callee_arity"
	}

	return fmt.Sprintf(`MATCH (c:Call), (loc:FunctionLocation)
WHERE c.project = $project
  AND c.callee_function <> '%%'
  AND %s
  AND %s%s
  AND loc.module = c.caller_module
  AND c.caller_function STARTS WITH loc.name
  AND c.line >= loc.start_line
  AND c.line <= loc.end_line
RETURN c.caller_module AS caller_module, loc.name AS caller_name, loc.arity AS caller_arity,
       loc.kind AS caller_kind, loc.start_line AS caller_start_line, loc.end_line AS caller_end_line,
       c.callee_module AS callee_module, c.callee_function AS callee_function, c.callee_arity AS callee_arity,
       c.file AS file, c.line AS call_line
ORDER BY %s
LIMIT %d`, moduleCond, functionCond, arityCond, order, b.Limit)
}

func (b CallsQueryBuilder) Parameters() map[string]value.Value {
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

// callColumns is the shared layout of every call-shaped result.
var callColumns = []string{
	"caller_module", "caller_name", "caller_arity", "caller_kind",
	"caller_start_line", "caller_end_line",
	"callee_module", "callee_function", "callee_arity", "file", "call_line",
}

func decodeCallRows(rs value.ResultSet) ([]Call, error) {
	layout, err := decode.NewRowLayout(rs, callColumns...)
	if err != nil {
		return nil, err
	}
	var out []Call
	for _, row := range rs.Rows {
		callerModule, ok := layout.String(row, "caller_module")
		if !ok {
			continue
		}
		callerName, ok := layout.String(row, "caller_name")
		if !ok {
			continue
		}
		calleeModule, ok := layout.String(row, "callee_module")
		if !ok {
			continue
		}
		calleeFunction, ok := layout.String(row, "callee_function")
		if !ok {
			continue
		}
		out = append(out, Call{
			CallerModule:    callerModule,
			CallerName:      callerName,
			CallerArity:     layout.Int64Or(row, "caller_arity", 0),
			CallerKind:      layout.StringOr(row, "caller_kind", ""),
			CallerStartLine: layout.Int64Or(row, "caller_start_line", 0),
			CallerEndLine:   layout.Int64Or(row, "caller_end_line", 0),
			CalleeModule:    calleeModule,
			CalleeFunction:  calleeFunction,
			CalleeArity:     layout.Int64Or(row, "callee_arity", 0),
			File:            layout.StringOr(row, "file", ""),
			Line:            layout.Int64Or(row, "call_line", 0),
		})
	}
	return out, nil
}

// FindCalls compiles and runs a calls query against the backend.
func FindCalls(ctx context.Context, be backend.Backend, b CallsQueryBuilder) ([]Call, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Calls", Message: err.Error()}
	}
	return decodeCallRows(rs)
}

// StripAritySuffix removes a trailing "/N" arity suffix from a caller
// function token, returning the bare name.
func StripAritySuffix(token string) string {
	for i := len(token) - 1; i > 0; i-- {
		c := token[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '/' {
			if i == len(token)-1 {
				return token
			}
			if _, err := strconv.Atoi(token[i+1:]); err == nil {
				return token[:i]
			}
		}
		return token
	}
	return token
}
