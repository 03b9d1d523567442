package traversal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edge(depth int64, callerModule, callerFunction, calleeModule, calleeFunction string, calleeArity int64) Edge {
	return Edge{
		Depth:          depth,
		CallerModule:   callerModule,
		CallerFunction: callerFunction,
		CalleeModule:   calleeModule,
		CalleeFunction: calleeFunction,
		CalleeArity:    calleeArity,
		File:           "lib/app.ex",
		Line:           depth * 10,
	}
}

func TestTokenMatchesFunction(t *testing.T) {
	assert.True(t, TokenMatchesFunction("get_user", "get_user", 1))
	assert.True(t, TokenMatchesFunction("get_user/1", "get_user", 1))
	assert.False(t, TokenMatchesFunction("get_user/2", "get_user", 1))
	// The tightened predicate does not conflate shared name prefixes.
	assert.False(t, TokenMatchesFunction("handle_call", "handle", 2))
}

func TestReconstructPathsDirectEdge(t *testing.T) {
	edges := []Edge{
		edge(1, "MyApp.Controller", "create/2", "MyApp.Notifier", "send_email", 2),
	}
	arity := int64(2)
	paths := ReconstructPaths(edges, Target{Module: "MyApp.Notifier", Function: "send_email", Arity: &arity}, 100)
	require.Len(t, paths, 1)
	assert.Len(t, paths[0], 1)
}

func TestReconstructPathsChainWithAritySuffix(t *testing.T) {
	edges := []Edge{
		edge(1, "MyApp.Controller", "show/2", "MyApp.Accounts", "get_user", 2),
		edge(2, "MyApp.Accounts", "get_user/2", "MyApp.Accounts", "get_user", 1),
		edge(3, "MyApp.Accounts", "get_user/1", "MyApp.Repo", "get", 2),
		edge(4, "MyApp.Repo", "get/2", "MyApp.Repo", "query", 2),
	}
	paths := ReconstructPaths(edges, Target{Module: "MyApp.Repo", Function: "query"}, 100)
	require.Len(t, paths, 1)
	require.Len(t, paths[0], 4)
	assert.Equal(t, "show/2", paths[0][0].CallerFunction)
	assert.Equal(t, "query", paths[0][3].CalleeFunction)
}

func TestReconstructPathsBothRoutes(t *testing.T) {
	// Direct route and a two-step route both reach the target.
	edges := []Edge{
		edge(1, "A", "start", "C", "finish", 0),
		edge(1, "A", "start", "B", "middle", 0),
		edge(2, "B", "middle", "C", "finish", 0),
	}
	paths := ReconstructPaths(edges, Target{Module: "C", Function: "finish"}, 100)
	require.Len(t, paths, 2)
}

func TestReconstructPathsHonorsLimit(t *testing.T) {
	edges := []Edge{
		edge(1, "A", "start", "C", "finish", 0),
		edge(1, "A", "start", "B", "middle", 0),
		edge(2, "B", "middle", "C", "finish", 0),
	}
	paths := ReconstructPaths(edges, Target{Module: "C", Function: "finish"}, 1)
	assert.Len(t, paths, 1)
}

func TestReconstructPathsCycleGuard(t *testing.T) {
	// A -> B -> A cycle with the target elsewhere: the DFS must not loop
	// and must not reuse the same edge within one path.
	edges := []Edge{
		edge(1, "A", "f", "B", "g", 0),
		edge(2, "B", "g", "A", "f", 0),
		edge(3, "A", "f", "C", "target", 0),
	}
	paths := ReconstructPaths(edges, Target{Module: "C", Function: "target"}, 100)
	require.NotEmpty(t, paths)
	for _, path := range paths {
		seen := map[[4]string]bool{}
		for _, e := range path {
			key := [4]string{e.CallerModule, e.CallerFunction, e.CalleeModule, e.CalleeFunction}
			assert.False(t, seen[key], "edge repeated within one path")
			seen[key] = true
		}
	}
}

func TestReconstructPathsEmptyInputs(t *testing.T) {
	assert.Empty(t, ReconstructPaths(nil, Target{Module: "A", Function: "f"}, 10))
	assert.Empty(t, ReconstructPaths([]Edge{edge(1, "A", "f", "B", "g", 0)}, Target{Module: "X", Function: "y"}, 10))
	assert.Empty(t, ReconstructPaths([]Edge{edge(1, "A", "f", "B", "g", 0)}, Target{Module: "B", Function: "g"}, 0))
}

func TestShortestPathVertices(t *testing.T) {
	edges := []Edge{
		edge(1, "A", "start", "B", "middle", 0),
		edge(2, "B", "middle", "C", "finish", 0),
	}
	path := ShortestPath(edges, "A", "start", "B", "middle")
	assert.Equal(t, []string{"A.start", "B.middle"}, path)

	assert.Nil(t, ShortestPath(edges, "A", "start", "X", "missing"))
	assert.Nil(t, ShortestPath(nil, "A", "start", "B", "middle"))
}

func TestReconstructPathsArityMismatch(t *testing.T) {
	edges := []Edge{edge(1, "A", "f", "B", "g", 2)}
	arity := int64(3)
	paths := ReconstructPaths(edges, Target{Module: "B", Function: "g", Arity: &arity}, 10)
	assert.Empty(t, paths)
}
