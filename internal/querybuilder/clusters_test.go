package querybuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexdb/query-core/internal/backend/backendtest"
	"github.com/cortexdb/query-core/internal/value"
)

func TestClustersQueryDatalog(t *testing.T) {
	b := ClustersQueryBuilder{Project: "myproject"}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)

	assert.Contains(t, script, "*calls")
	assert.Contains(t, script, "caller_module != callee_module")
}

func TestClustersQueryGraph(t *testing.T) {
	b := ClustersQueryBuilder{Project: "myproject"}
	script, err := b.Compile(DialectGraph)
	require.NoError(t, err)

	assert.Contains(t, script, "MATCH")
	assert.Contains(t, script, "CALLS")
	assert.Contains(t, script, "caller.module <> callee.module")
}

func TestNamespaceOf(t *testing.T) {
	assert.Equal(t, "MyApp.Accounts", NamespaceOf("MyApp.Accounts.User"))
	assert.Equal(t, "MyApp.Accounts", NamespaceOf("MyApp.Accounts"))
	assert.Equal(t, "MyApp", NamespaceOf("MyApp"))
}

func TestComputeClustersMetrics(t *testing.T) {
	calls := []ModuleCall{
		// Internal to MyApp.Accounts
		{CallerModule: "MyApp.Accounts.User", CalleeModule: "MyApp.Accounts.Token"},
		{CallerModule: "MyApp.Accounts.Token", CalleeModule: "MyApp.Accounts.User"},
		// MyApp.Accounts -> MyApp.Repo
		{CallerModule: "MyApp.Accounts.User", CalleeModule: "MyApp.Repo.Postgres"},
		// MyApp.Web -> MyApp.Accounts
		{CallerModule: "MyApp.Web.Controller", CalleeModule: "MyApp.Accounts.User"},
	}

	clusters := ComputeClusters(calls)
	require.Len(t, clusters, 3)

	byNS := map[string]Cluster{}
	for _, c := range clusters {
		byNS[c.Namespace] = c
	}

	accounts := byNS["MyApp.Accounts"]
	assert.Equal(t, 2, accounts.InternalCalls)
	assert.Equal(t, 1, accounts.Efferent)
	assert.Equal(t, 1, accounts.Afferent)
	assert.Equal(t, []string{"MyApp.Accounts.Token", "MyApp.Accounts.User"}, accounts.Modules)
	assert.InDelta(t, 0.5, accounts.Cohesion, 1e-9)
	assert.InDelta(t, 0.5, accounts.Instability, 1e-9)

	// Repo has no outgoing calls: maximally stable.
	repo := byNS["MyApp.Repo"]
	assert.Equal(t, 0, repo.Efferent)
	assert.InDelta(t, 0.0, repo.Instability, 1e-9)

	// Web depends out only: maximally unstable.
	web := byNS["MyApp.Web"]
	assert.InDelta(t, 1.0, web.Instability, 1e-9)
}

func TestComputeClustersEmpty(t *testing.T) {
	assert.Empty(t, ComputeClusters(nil))
}

func TestGetModuleCalls(t *testing.T) {
	fake := backendtest.New()
	fake.QueryStub = func(script string, params map[string]value.Value) (value.ResultSet, error) {
		return value.ResultSet{
			Headers: value.Header{"caller_module", "callee_module"},
			Rows: []value.Row{
				{value.String("A.B"), value.String("C.D")},
			},
		}, nil
	}
	calls, err := GetModuleCalls(context.Background(), fake, ClustersQueryBuilder{Project: "p"})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "A.B", calls[0].CallerModule)
}
