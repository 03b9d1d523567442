// Package traversal reconstructs call paths from the edge set a bounded
// trace query returns. The query emits call edges from the source within
// its depth bound; the DFS here walks those edges in memory,
// guarding against cycles with a per-path visited-edge set.
package traversal

import (
	"strconv"

	"github.com/dominikbraun/graph"
)

// Edge is one call edge as returned by the trace query. CallerFunction is
// the raw caller token and may carry an arity suffix ("name/2");
// CalleeFunction never does.
type Edge struct {
	Depth          int64
	CallerModule   string
	CallerFunction string
	CalleeModule   string
	CalleeFunction string
	CalleeArity    int64
	File           string
	Line           int64
}

// Target identifies the function a path must end at. Arity nil matches
// any arity.
type Target struct {
	Module   string
	Function string
	Arity    *int64
}

func (t Target) matches(e Edge) bool {
	if e.CalleeModule != t.Module || e.CalleeFunction != t.Function {
		return false
	}
	return t.Arity == nil || e.CalleeArity == *t.Arity
}

// edgeKey identifies an edge for the cycle guard: the same
// (caller, callee) pair may not appear twice in one path. Distinct paths
// sharing a vertex remain allowed.
type edgeKey struct {
	callerModule, callerFunction, calleeModule, calleeFunction string
}

func keyOf(e Edge) edgeKey {
	return edgeKey{e.CallerModule, e.CallerFunction, e.CalleeModule, e.CalleeFunction}
}

// TokenMatchesFunction reports whether a caller function token continues
// from a callee: either the bare name or the name with the callee's arity
// suffix. This is deliberately tighter than a bare prefix test, which
// would conflate functions sharing a name prefix (handle vs handle_call).
func TokenMatchesFunction(token, name string, arity int64) bool {
	return token == name || token == name+"/"+strconv.FormatInt(arity, 10)
}

type nodeKey struct {
	module, function string
}

// adjacency indexes edges by their caller node. A vertex graph is kept
// alongside so shortest-path and connectivity helpers can reuse the same
// structure.
type adjacency struct {
	edges map[nodeKey][]Edge
	g     graph.Graph[string, string]
}

func buildAdjacency(edges []Edge) adjacency {
	adj := adjacency{
		edges: make(map[nodeKey][]Edge),
		g:     graph.New(graph.StringHash, graph.Directed()),
	}
	for _, e := range edges {
		k := nodeKey{e.CallerModule, e.CallerFunction}
		adj.edges[k] = append(adj.edges[k], e)

		from := e.CallerModule + "." + e.CallerFunction
		to := e.CalleeModule + "." + e.CalleeFunction
		_ = adj.g.AddVertex(from)
		_ = adj.g.AddVertex(to)
		_ = adj.g.AddEdge(from, to)
	}
	return adj
}

// continuations returns the edges whose caller continues from the given
// callee, accommodating the arity-suffix convention.
func (a adjacency) continuations(calleeModule, calleeFunction string, calleeArity int64) []Edge {
	var out []Edge
	for _, e := range a.edges[nodeKey{calleeModule, calleeFunction}] {
		out = append(out, e)
	}
	withSuffix := calleeFunction + "/" + strconv.FormatInt(calleeArity, 10)
	for _, e := range a.edges[nodeKey{calleeModule, withSuffix}] {
		out = append(out, e)
	}
	return out
}

// ShortestPath returns the vertex sequence of one shortest path between
// two nodes, or nil when no path exists. Vertices are named
// "module.function-token" as stored in the adjacency graph.
func ShortestPath(edges []Edge, fromModule, fromFunction, toModule, toFunction string) []string {
	if len(edges) == 0 {
		return nil
	}
	adj := buildAdjacency(edges)
	path, err := graph.ShortestPath(adj.g, fromModule+"."+fromFunction, toModule+"."+toFunction)
	if err != nil {
		return nil
	}
	return path
}

// ReconstructPaths walks the edge set depth-first from every depth-1 edge
// and collects up to limit complete paths ending at the target. Empty
// edge sets, unreachable targets, and cycles all degrade to fewer (or
// zero) paths, never to an error.
func ReconstructPaths(edges []Edge, target Target, limit int) [][]Edge {
	if len(edges) == 0 || limit <= 0 {
		return nil
	}

	adj := buildAdjacency(edges)
	var paths [][]Edge
	var current []Edge
	visited := make(map[edgeKey]bool)

	var dfs func(e Edge)
	dfs = func(e Edge) {
		current = append(current, e)
		visited[keyOf(e)] = true
		defer func() {
			current = current[:len(current)-1]
			delete(visited, keyOf(e))
		}()

		if target.matches(e) {
			path := make([]Edge, len(current))
			copy(path, current)
			paths = append(paths, path)
			return
		}
		if len(paths) >= limit {
			return
		}
		for _, next := range adj.continuations(e.CalleeModule, e.CalleeFunction, e.CalleeArity) {
			if visited[keyOf(next)] || len(paths) >= limit {
				continue
			}
			dfs(next)
		}
	}

	for _, e := range edges {
		if e.Depth != 1 {
			continue
		}
		if len(paths) >= limit {
			break
		}
		dfs(e)
	}
	return paths
}
