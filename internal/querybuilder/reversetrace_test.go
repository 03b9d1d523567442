package querybuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexdb/query-core/internal/backend/backendtest"
	"github.com/cortexdb/query-core/internal/value"
)

func TestReverseTraceDatalogStructure(t *testing.T) {
	b := ReverseTraceQueryBuilder{
		ModulePattern: "MyApp.Accounts", FunctionPattern: "get_user",
		Project: "default", MaxDepth: 10, Limit: 100,
	}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)

	// Base case anchors on the callee, recursion extends to the callers
	// of previously found callers, bounded by max depth.
	assert.Contains(t, script, "callee_module == $module_pattern")
	assert.Contains(t, script, "callee_function == $function_pattern")
	assert.Contains(t, script, "callee_function == prev_caller_name")
	assert.Contains(t, script, "prev_depth < 10")
	assert.Contains(t, script, "depth = prev_depth + 1")
	assert.Contains(t, script, "depth = 1")
	assert.Contains(t, script, ":order depth, caller_module, caller_name, caller_arity, call_line")
}

func TestReverseTraceDatalogArityFilter(t *testing.T) {
	b := ReverseTraceQueryBuilder{
		ModulePattern: "M", FunctionPattern: "f", Arity: int64ptr(1),
		Project: "default", MaxDepth: 5, Limit: 100,
	}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "callee_arity == $arity")

	b.Arity = nil
	script, err = b.Compile(DialectDatalog)
	require.NoError(t, err)
	// when_none fragment keeps the rule body well-formed.
	assert.Contains(t, script, "true")
}

func TestReverseTraceGraphVariableLength(t *testing.T) {
	b := ReverseTraceQueryBuilder{
		ModulePattern: "MyApp.Accounts", FunctionPattern: "get_user",
		Project: "default", MaxDepth: 7, Limit: 100,
	}
	script, err := b.Compile(DialectGraph)
	require.NoError(t, err)
	assert.Contains(t, script, "[:CALLS*1..7]")
	assert.Contains(t, script, "target.module = $module_pattern")
}

func TestReverseTraceRejectsInvalidRegex(t *testing.T) {
	b := ReverseTraceQueryBuilder{
		ModulePattern: "[invalid", FunctionPattern: "get_user",
		Project: "default", UseRegex: true, MaxDepth: 10, Limit: 100,
	}
	_, err := b.Compile(DialectDatalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid regex pattern")
}

func TestReverseTraceCallsDecodesDepth(t *testing.T) {
	fake := backendtest.New()
	fake.QueryStub = func(script string, params map[string]value.Value) (value.ResultSet, error) {
		return value.ResultSet{
			Headers: value.Header{
				"depth", "caller_module", "caller_name", "caller_arity", "caller_kind",
				"caller_start_line", "caller_end_line",
				"callee_module", "callee_function", "callee_arity", "file", "call_line",
			},
			Rows: []value.Row{
				{value.Int(1), value.String("MyApp.Controller"), value.String("show"), value.Int(2),
					value.String("def"), value.Int(10), value.Int(20),
					value.String("MyApp.Accounts"), value.String("get_user"), value.Int(1),
					value.String("lib/controller.ex"), value.Int(14)},
				{value.Int(2), value.String("MyAppWeb.Router"), value.String("dispatch"), value.Int(2),
					value.String("def"), value.Int(5), value.Int(9),
					value.String("MyApp.Controller"), value.String("show"), value.Int(2),
					value.String("lib/router.ex"), value.Int(7)},
			},
		}, nil
	}

	steps, err := ReverseTraceCalls(context.Background(), fake, ReverseTraceQueryBuilder{
		ModulePattern: "MyApp.Accounts", FunctionPattern: "get_user",
		Project: "default", MaxDepth: 10, Limit: 100,
	})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, int64(1), steps[0].Depth)
	assert.Equal(t, int64(2), steps[1].Depth)
	assert.Equal(t, "MyApp.Controller", steps[0].CallerModule)
	for _, s := range steps {
		assert.GreaterOrEqual(t, s.Depth, int64(1))
	}
}
