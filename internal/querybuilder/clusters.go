package querybuilder

import (
	"context"
	"sort"
	"strings"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/decode"
	"github.com/cortexdb/query-core/internal/value"
)

// ClustersQueryBuilder fetches inter-module call pairs; the grouping into
// namespace clusters and the connectivity metrics are computed in client
// code, not in either dialect.
type ClustersQueryBuilder struct {
	Project string
}

func (b ClustersQueryBuilder) Compile(dialect Dialect) (string, error) {
	if dialect == DialectGraph {
		return `MATCH (caller:Function)-[:CALLS]->(callee:Function)
WHERE caller.project = $project
  AND caller.module <> callee.module
RETURN DISTINCT caller.module as caller_module, callee.module as callee_module`, nil
	}
	return `?[caller_module, callee_module] :=
    *calls{project, caller_module, callee_module},
    project == $project,
    caller_module != callee_module`, nil
}

func (b ClustersQueryBuilder) Parameters() map[string]value.Value {
	return map[string]value.Value{
		"project": value.String(b.Project),
	}
}

// GetModuleCalls runs the clusters base query: every (caller, callee)
// module pair with caller != callee.
func GetModuleCalls(ctx context.Context, be backend.Backend, b ClustersQueryBuilder) ([]ModuleCall, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Clusters", Message: err.Error()}
	}

	layout, err := decode.NewRowLayout(rs, "caller_module", "callee_module")
	if err != nil {
		return nil, err
	}
	var out []ModuleCall
	for _, row := range rs.Rows {
		caller, ok := layout.String(row, "caller_module")
		if !ok {
			continue
		}
		callee, ok := layout.String(row, "callee_module")
		if !ok {
			continue
		}
		out = append(out, ModuleCall{CallerModule: caller, CalleeModule: callee})
	}
	return out, nil
}

// NamespaceOf groups a module under its cluster namespace: the first two
// dot-separated segments, or the whole name when it has fewer.
func NamespaceOf(module string) string {
	parts := strings.SplitN(module, ".", 3)
	if len(parts) < 2 {
		return module
	}
	return parts[0] + "." + parts[1]
}

// ComputeClusters groups inter-module calls by namespace and derives
// per-cluster metrics. Cohesion is the share of a cluster's calls that
// stay inside it; instability is efferent / (efferent + afferent)
// coupling, 1.0 for a cluster that calls out but that nothing depends on,
// and 0.0 for a cluster with no external calls at all.
func ComputeClusters(calls []ModuleCall) []Cluster {
	type stats struct {
		modules  map[string]bool
		internal int
		efferent int
		afferent int
	}
	byNS := make(map[string]*stats)
	get := func(ns string) *stats {
		s, ok := byNS[ns]
		if !ok {
			s = &stats{modules: make(map[string]bool)}
			byNS[ns] = s
		}
		return s
	}

	for _, c := range calls {
		callerNS := NamespaceOf(c.CallerModule)
		calleeNS := NamespaceOf(c.CalleeModule)
		caller := get(callerNS)
		callee := get(calleeNS)
		caller.modules[c.CallerModule] = true
		callee.modules[c.CalleeModule] = true
		if callerNS == calleeNS {
			caller.internal++
		} else {
			caller.efferent++
			callee.afferent++
		}
	}

	clusters := make([]Cluster, 0, len(byNS))
	for ns, s := range byNS {
		modules := make([]string, 0, len(s.modules))
		for m := range s.modules {
			modules = append(modules, m)
		}
		sort.Strings(modules)

		external := s.efferent + s.afferent
		cohesion := 0.0
		if s.internal+external > 0 {
			cohesion = float64(s.internal) / float64(s.internal+external)
		}
		instability := 0.0
		if s.efferent+s.afferent > 0 {
			instability = float64(s.efferent) / float64(s.efferent+s.afferent)
		}
		clusters = append(clusters, Cluster{
			Namespace:     ns,
			Modules:       modules,
			InternalCalls: s.internal,
			ExternalCalls: external,
			Efferent:      s.efferent,
			Afferent:      s.afferent,
			Cohesion:      cohesion,
			Instability:   instability,
		})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Namespace < clusters[j].Namespace })
	return clusters
}

// FindClusters runs the base query and computes cluster metrics.
func FindClusters(ctx context.Context, be backend.Backend, b ClustersQueryBuilder) ([]Cluster, error) {
	calls, err := GetModuleCalls(ctx, be, b)
	if err != nil {
		return nil, err
	}
	return ComputeClusters(calls), nil
}
