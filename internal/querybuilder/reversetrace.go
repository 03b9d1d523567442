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

// ReverseTraceQueryBuilder traces call chains backwards from a target
// function: depth 1 is the direct callers, depth 2 their callers, and so
// on up to MaxDepth.
type ReverseTraceQueryBuilder struct {
	ModulePattern   string
	FunctionPattern string
	Arity           *int64
	Project         string
	UseRegex        bool
	MaxDepth        int
	Limit           int
}

func (b ReverseTraceQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := ValidateLimit(b.Limit); err != nil {
		return "", err
	}
	if err := querycond.ValidateRegexPatterns(b.UseRegex, &b.ModulePattern, &b.FunctionPattern); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	moduleCond := querycond.New("callee_module", "module_pattern").Build(dialect, b.UseRegex)
	functionCond := querycond.New("callee_function", "function_pattern").Build(dialect, b.UseRegex)
	arityCond := querycond.OptionalConditionBuilder{
		Field: "callee_arity", Param: "arity", WhenNone: "true",
	}.Build(dialect, b.Arity != nil, false)

	// Base case: calls to the target. Recursive case: calls to the
	// callers found so far, joined on the caller's clean name. A call's
	// caller_function carries an arity suffix while the function_locations
	// name does not, hence starts_with when matching a call to its clause.
	return fmt.Sprintf(`# Base case: calls to the target function, joined with function_locations
trace[depth, caller_module, caller_name, caller_arity, caller_kind, caller_start_line, caller_end_line, callee_module, callee_function, callee_arity, file, call_line] :=
    *calls{project, caller_module, caller_function, callee_module, callee_function, callee_arity, file, line: call_line},
    *function_locations{project, module: caller_module, name: caller_name, arity: caller_arity, kind: caller_kind, start_line: caller_start_line, end_line: caller_end_line},
    starts_with(caller_function, caller_name),
    call_line >= caller_start_line,
    call_line <= caller_end_line,
    %s,
    %s,
    project == $project,
    %s,
    depth = 1

# Recursive case: calls to the callers we've found
trace[depth, caller_module, caller_name, caller_arity, caller_kind, caller_start_line, caller_end_line, callee_module, callee_function, callee_arity, file, call_line] :=
    trace[prev_depth, prev_caller_module, prev_caller_name, prev_caller_arity, _, _, _, _, _, _, _, _],
    *calls{project, caller_module, caller_function, callee_module, callee_function, callee_arity, file, line: call_line},
    *function_locations{project, module: caller_module, name: caller_name, arity: caller_arity, kind: caller_kind, start_line: caller_start_line, end_line: caller_end_line},
    callee_module == prev_caller_module,
    callee_function == prev_caller_name,
    callee_arity == prev_caller_arity,
    starts_with(caller_function, caller_name),
    call_line >= caller_start_line,
    call_line <= caller_end_line,
    prev_depth < %d,
    depth = prev_depth + 1,
    project == $project

?[depth, caller_module, caller_name, caller_arity, caller_kind, caller_start_line, caller_end_line, callee_module, callee_function, callee_arity, file, call_line] :=
    trace[depth, caller_module, caller_name, caller_arity, caller_kind, caller_start_line, caller_end_line, callee_module, callee_function, callee_arity, file, call_line]

:order depth, caller_module, caller_name, caller_arity, call_line, callee_module, callee_function, callee_arity
:limit %d`, moduleCond, functionCond, arityCond, b.MaxDepth, b.Limit), nil
}

// compileGraph expresses the same trace with a variable-length pattern
// run backwards from the target.
func (b ReverseTraceQueryBuilder) compileGraph() string {
	match := "="
	if b.UseRegex {
		match = "=~"
	}
	arityCond := ""
	if b.Arity != nil {
		arityCond = "\n  AND target.arity = $arity"
	}

	return fmt.Sprintf(`MATCH path = (caller:Function)-[:CALLS*1..%d]->(target:Function)
WHERE target.project = $project
  AND target.module %s $module_pattern
  AND target.name %s $function_pattern%s
WITH path, length(path) as depth,
     nodes(path) as funcs,
     relationships(path) as calls
RETURN depth,
       funcs[0].module as caller_module,
       funcs[0].name as caller_name,
       funcs[0].arity as caller_arity,
       funcs[0].kind as caller_kind,
       funcs[0].start_line as caller_start_line,
       funcs[0].end_line as caller_end_line,
       funcs[1].module as callee_module,
       funcs[1].name as callee_function,
       funcs[1].arity as callee_arity,
       calls[0].file as file,
       calls[0].line as call_line
ORDER BY depth, caller_module, caller_name, caller_arity, call_line
LIMIT %d`, b.MaxDepth, match, match, arityCond, b.Limit)
}

func (b ReverseTraceQueryBuilder) Parameters() map[string]value.Value {
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

// ReverseTraceCalls compiles and runs a reverse trace.
func ReverseTraceCalls(ctx context.Context, be backend.Backend, b ReverseTraceQueryBuilder) ([]ReverseTraceStep, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "ReverseTrace", Message: err.Error()}
	}

	cols := append([]string{"depth"}, callColumns...)
	layout, err := decode.NewRowLayout(rs, cols...)
	if err != nil {
		return nil, err
	}
	var out []ReverseTraceStep
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
		out = append(out, ReverseTraceStep{
			Depth: layout.Int64Or(row, "depth", 0),
			Call: Call{
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
			},
		})
	}
	return out, nil
}
