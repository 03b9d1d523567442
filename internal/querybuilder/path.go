package querybuilder

import (
	"context"
	"fmt"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/decode"
	"github.com/cortexdb/query-core/internal/traversal"
	"github.com/cortexdb/query-core/internal/value"
)

// PathQueryBuilder finds call paths between two functions. The Datalog
// dialect runs a forward recursive trace bounded by MaxDepth and filtered
// to edges at depths up to the shallowest hit of the target; the graph
// dialect runs a variable-length MATCH narrowed to one shortest path.
// Either way the backend returns edges labelled with their step depth,
// and path reconstruction happens in memory.
type PathQueryBuilder struct {
	FromModule   string
	FromFunction string
	ToModule     string
	ToFunction   string
	ToArity      *int64
	Project      string
	MaxDepth     int
	Limit        int
}

func (b PathQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := ValidateLimit(b.Limit); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	toArityCond := ""
	if b.ToArity != nil {
		toArityCond = ",\n    callee_arity == $to_arity"
	}

	return fmt.Sprintf(`# Base case: direct calls from the source function
trace[depth, caller_module, caller_function, callee_module, callee_function, callee_arity, file, line] :=
    *calls{project, caller_module, caller_function, callee_module, callee_function, callee_arity, file, line},
    caller_module == $from_module,
    caller_function == $from_function,
    project == $project,
    depth = 1

# Recursive case: continue from callees we've found. caller_function
# carries an arity suffix while callee_function does not, hence starts_with.
trace[depth, caller_module, caller_function, callee_module, callee_function, callee_arity, file, line] :=
    trace[prev_depth, _, _, prev_callee_module, prev_callee_function, _, _, _],
    *calls{project, caller_module, caller_function, callee_module, callee_function, callee_arity, file, line},
    caller_module == prev_callee_module,
    starts_with(caller_function, prev_callee_function),
    prev_depth < %d,
    depth = prev_depth + 1,
    project == $project

# Depth at which the target is reached
target_depth[d] :=
    trace[d, _, _, callee_module, callee_function, callee_arity, _, _],
    callee_module == $to_module,
    callee_function == $to_function%s

# Only edges at depths <= the minimum target depth lie on valid paths
?[depth, caller_module, caller_function, callee_module, callee_function, callee_arity, file, line] :=
    trace[depth, caller_module, caller_function, callee_module, callee_function, callee_arity, file, line],
    target_depth[min_d],
    depth <= min_d

:order depth, caller_module, caller_function, callee_module, callee_function
:limit %d`, b.MaxDepth, toArityCond, b.Limit), nil
}

func (b PathQueryBuilder) compileGraph() string {
	arityCond := ""
	if b.ToArity != nil {
		arityCond = "\n  AND target.arity = $to_arity"
	}
	return fmt.Sprintf(`MATCH path = (source:Function)-[:CALLS*1..%d]->(target:Function)
WHERE source.module = $from_module
  AND source.name = $from_function
  AND source.project = $project
  AND target.module = $to_module
  AND target.name = $to_function%s
WITH path ORDER BY length(path) LIMIT 1
WITH path,
     nodes(path) as funcs,
     relationships(path) as calls
UNWIND range(0, size(calls)-1) as idx
RETURN idx + 1 as depth,
       funcs[idx].module as caller_module,
       funcs[idx].name as caller_function,
       funcs[idx+1].module as callee_module,
       funcs[idx+1].name as callee_function,
       funcs[idx+1].arity as callee_arity,
       calls[idx].file as file,
       calls[idx].line as line
ORDER BY depth, caller_module, caller_function
LIMIT %d`, b.MaxDepth, arityCond, b.Limit)
}

func (b PathQueryBuilder) Parameters() map[string]value.Value {
	params := map[string]value.Value{
		"from_module":   value.String(b.FromModule),
		"from_function": value.String(b.FromFunction),
		"to_module":     value.String(b.ToModule),
		"to_function":   value.String(b.ToFunction),
		"project":       value.String(b.Project),
	}
	if b.ToArity != nil {
		params["to_arity"] = value.Int(*b.ToArity)
	}
	return params
}

// FindPaths runs the trace query and reconstructs every source→target
// path from the returned edges, up to the builder's limit. Missing
// sources, unreachable targets, and empty graphs yield an empty slice.
func FindPaths(ctx context.Context, be backend.Backend, b PathQueryBuilder) ([]CallPath, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Path", Message: err.Error()}
	}

	layout, err := decode.NewRowLayout(rs,
		"depth", "caller_module", "caller_function",
		"callee_module", "callee_function", "callee_arity", "file", "line")
	if err != nil {
		return nil, err
	}

	var edges []traversal.Edge
	for _, row := range rs.Rows {
		callerModule, ok := layout.String(row, "caller_module")
		if !ok {
			continue
		}
		callerFunction, ok := layout.String(row, "caller_function")
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
		edges = append(edges, traversal.Edge{
			Depth:          layout.Int64Or(row, "depth", 0),
			CallerModule:   callerModule,
			CallerFunction: callerFunction,
			CalleeModule:   calleeModule,
			CalleeFunction: calleeFunction,
			CalleeArity:    layout.Int64Or(row, "callee_arity", 0),
			File:           layout.StringOr(row, "file", ""),
			Line:           layout.Int64Or(row, "line", 0),
		})
	}

	target := traversal.Target{Module: b.ToModule, Function: b.ToFunction, Arity: b.ToArity}
	var out []CallPath
	for _, path := range traversal.ReconstructPaths(edges, target, b.Limit) {
		steps := make([]PathStep, len(path))
		for i, e := range path {
			steps[i] = PathStep{
				Depth:          e.Depth,
				CallerModule:   e.CallerModule,
				CallerFunction: e.CallerFunction,
				CalleeModule:   e.CalleeModule,
				CalleeFunction: e.CalleeFunction,
				CalleeArity:    e.CalleeArity,
				File:           e.File,
				Line:           e.Line,
			}
		}
		out = append(out, CallPath{Steps: steps})
	}
	return out, nil
}
