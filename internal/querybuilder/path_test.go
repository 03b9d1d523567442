package querybuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexdb/query-core/internal/backend/backendtest"
	"github.com/cortexdb/query-core/internal/value"
)

func TestPathQueryDatalogBasic(t *testing.T) {
	b := PathQueryBuilder{
		FromModule: "MyApp.Controller", FromFunction: "handle_request",
		ToModule: "MyApp.Repo", ToFunction: "insert",
		Project: "myproject", MaxDepth: 10, Limit: 100,
	}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)

	assert.Contains(t, script, "trace[depth")
	assert.Contains(t, script, "target_depth")
	assert.Contains(t, script, "$from_module")
	assert.Contains(t, script, "$to_module")
	assert.Contains(t, script, "depth <= min_d")
	assert.Contains(t, script, "prev_depth < 10")
	assert.NotContains(t, script, "$to_arity")
}

func TestPathQueryDatalogWithArity(t *testing.T) {
	b := PathQueryBuilder{
		FromModule: "MyApp", FromFunction: "start",
		ToModule: "MyApp.DB", ToFunction: "query", ToArity: int64ptr(2),
		Project: "myproject", MaxDepth: 5, Limit: 50,
	}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "callee_arity == $to_arity")
}

func TestPathQueryGraph(t *testing.T) {
	b := PathQueryBuilder{
		FromModule: "MyApp", FromFunction: "start",
		ToModule: "MyApp.Target", ToFunction: "end",
		Project: "myproject", MaxDepth: 5, Limit: 100,
	}
	script, err := b.Compile(DialectGraph)
	require.NoError(t, err)

	assert.Contains(t, script, "MATCH path = (source:Function)-[:CALLS*1..5]->(target:Function)")
	assert.Contains(t, script, "source.module")
	assert.Contains(t, script, "target.module")
	assert.Contains(t, script, "UNWIND range(0, size(calls)-1)")
}

func TestPathQueryParameters(t *testing.T) {
	b := PathQueryBuilder{
		FromModule: "A", FromFunction: "a", ToModule: "B", ToFunction: "b",
		ToArity: int64ptr(1), Project: "proj", MaxDepth: 3, Limit: 10,
	}
	params := b.Parameters()
	assert.Len(t, params, 6)
	assert.Equal(t, value.Int(1), params["to_arity"])
}

// pathEdgeRows builds a canned trace result from (depth, caller, callee)
// tuples, the shape FindPaths decodes.
func pathEdgeRows(edges [][2][2]string, depths []int64, arities []int64, lines []int64) value.ResultSet {
	rs := value.ResultSet{
		Headers: value.Header{"depth", "caller_module", "caller_function", "callee_module", "callee_function", "callee_arity", "file", "line"},
	}
	for i, e := range edges {
		rs.Rows = append(rs.Rows, value.Row{
			value.Int(depths[i]),
			value.String(e[0][0]), value.String(e[0][1]),
			value.String(e[1][0]), value.String(e[1][1]),
			value.Int(arities[i]),
			value.String("lib/app.ex"), value.Int(lines[i]),
		})
	}
	return rs
}

func TestFindPathsShortestOfTwoRoutes(t *testing.T) {
	// Controller.create/2 -> Notifier.send_email/2 directly, and also
	// via Service.process_request/2. Edge filtering to the minimum
	// target depth keeps only the direct route.
	fake := backendtest.New()
	fake.QueryStub = func(script string, params map[string]value.Value) (value.ResultSet, error) {
		return pathEdgeRows(
			[][2][2]string{
				{{"MyApp.Controller", "create/2"}, {"MyApp.Notifier", "send_email"}},
			},
			[]int64{1}, []int64{2}, []int64{10},
		), nil
	}

	paths, err := FindPaths(context.Background(), fake, PathQueryBuilder{
		FromModule: "MyApp.Controller", FromFunction: "create/2",
		ToModule: "MyApp.Notifier", ToFunction: "send_email", ToArity: int64ptr(2),
		Project: "default", MaxDepth: 10, Limit: 100,
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Len(t, paths[0].Steps, 1)
	assert.Equal(t, "MyApp.Notifier", paths[0].Steps[0].CalleeModule)
}

func TestFindPathsFourStepChain(t *testing.T) {
	// Controller.show/2 -> Accounts.get_user/2 -> Accounts.get_user/1
	// -> Repo.get/2 -> Repo.query/2
	stub := pathEdgeRows(
		[][2][2]string{
			{{"MyApp.Controller", "show/2"}, {"MyApp.Accounts", "get_user"}},
			{{"MyApp.Accounts", "get_user/2"}, {"MyApp.Accounts", "get_user"}},
			{{"MyApp.Accounts", "get_user/1"}, {"MyApp.Repo", "get"}},
			{{"MyApp.Repo", "get/2"}, {"MyApp.Repo", "query"}},
		},
		[]int64{1, 2, 3, 4},
		[]int64{2, 1, 2, 2},
		[]int64{10, 20, 30, 40},
	)
	fake := backendtest.New()
	fake.QueryStub = func(script string, params map[string]value.Value) (value.ResultSet, error) {
		return stub, nil
	}

	paths, err := FindPaths(context.Background(), fake, PathQueryBuilder{
		FromModule: "MyApp.Controller", FromFunction: "show/2",
		ToModule: "MyApp.Repo", ToFunction: "query",
		Project: "default", MaxDepth: 5, Limit: 100,
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Len(t, paths[0].Steps, 4)
	assert.Equal(t, "show/2", paths[0].Steps[0].CallerFunction)
	assert.Equal(t, "query", paths[0].Steps[3].CalleeFunction)

	// Consecutive steps chain: callee of one is the caller of the next
	// after stripping the arity suffix.
	for i := 0; i < 3; i++ {
		assert.Equal(t, paths[0].Steps[i].CalleeModule, paths[0].Steps[i+1].CallerModule)
		assert.Equal(t, paths[0].Steps[i].CalleeFunction, StripAritySuffix(paths[0].Steps[i+1].CallerFunction))
	}
}

func TestFindPathsEmptyEdges(t *testing.T) {
	fake := backendtest.New()
	fake.QueryStub = func(script string, params map[string]value.Value) (value.ResultSet, error) {
		return value.ResultSet{
			Headers: value.Header{"depth", "caller_module", "caller_function", "callee_module", "callee_function", "callee_arity", "file", "line"},
		}, nil
	}
	paths, err := FindPaths(context.Background(), fake, PathQueryBuilder{
		FromModule: "A", FromFunction: "a", ToModule: "B", ToFunction: "b",
		Project: "default", MaxDepth: 2, Limit: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, paths)
}
