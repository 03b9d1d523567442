package querybuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexdb/query-core/internal/backend/backendtest"
	"github.com/cortexdb/query-core/internal/value"
)

func TestUnusedQueryDatalogBasic(t *testing.T) {
	b := UnusedQueryBuilder{Project: "myproject", Limit: 100}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)

	assert.Contains(t, script, "defined[module, name, arity, kind, file, line]")
	assert.Contains(t, script, "called[callee_module, callee_function, callee_arity]")
	assert.Contains(t, script, "not called[module, name, arity]")
	assert.Contains(t, script, ":order module, name, arity")
}

func TestUnusedQueryDatalogPrivateOnly(t *testing.T) {
	b := UnusedQueryBuilder{Project: "myproject", PrivateOnly: true, Limit: 100}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, `kind == "defp"`)
	assert.Contains(t, script, `kind == "defmacrop"`)
	assert.NotContains(t, script, `kind == "def"`+"\n")
}

func TestUnusedQueryDatalogPublicOnly(t *testing.T) {
	b := UnusedQueryBuilder{Project: "myproject", PublicOnly: true, Limit: 100}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, `kind == "def"`)
	assert.Contains(t, script, `kind == "defmacro"`)
	assert.NotContains(t, script, "defp")
}

func TestUnusedQueryGraphAntiJoin(t *testing.T) {
	b := UnusedQueryBuilder{Project: "myproject", Limit: 100}
	script, err := b.Compile(DialectGraph)
	require.NoError(t, err)
	assert.Contains(t, script, "NOT EXISTS")
	assert.Contains(t, script, "c.callee_module = loc.module")
	assert.Contains(t, script, "c.callee_arity = loc.arity")
}

func TestGeneratedPatternsListIsFixed(t *testing.T) {
	assert.Len(t, GeneratedPatterns, 12)
	assert.True(t, IsGeneratedName("__struct__"))
	assert.True(t, IsGeneratedName("__schema__loaded"))
	assert.False(t, IsGeneratedName("handle_call"))
	assert.False(t, IsGeneratedName("_private"))
}

// unusedFixtureRows builds 7 unused functions, of which one is generated
// (__struct__), 2 are private, 5 are public.
func unusedFixtureRows() value.ResultSet {
	rs := value.ResultSet{Headers: value.Header{"module", "name", "arity", "kind", "file", "line"}}
	add := func(module, name, kind string) {
		rs.Rows = append(rs.Rows, value.Row{
			value.String(module), value.String(name), value.Int(1),
			value.String(kind), value.String("lib/app.ex"), value.Int(10),
		})
	}
	add("MyApp.User", "__struct__", "def")
	add("MyApp.Accounts", "delete_user", "def")
	add("MyApp.Accounts", "archive_user", "def")
	add("MyApp.Controller", "legacy_render", "def")
	add("MyApp.Notifier", "send_sms", "def")
	add("MyApp.Service", "cleanup", "defp")
	add("MyApp.Service", "audit", "defmacrop")
	return rs
}

func kindFiltered(rs value.ResultSet, kinds ...string) value.ResultSet {
	allowed := map[string]bool{}
	for _, k := range kinds {
		allowed[k] = true
	}
	out := value.ResultSet{Headers: rs.Headers}
	for _, row := range rs.Rows {
		if kind, _ := row[3].AsString(); allowed[kind] {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

func TestFindUnusedDefaultIncludesGenerated(t *testing.T) {
	fake := backendtest.New()
	fake.QueryStub = func(script string, params map[string]value.Value) (value.ResultSet, error) {
		return unusedFixtureRows(), nil
	}
	unused, err := FindUnused(context.Background(), fake, UnusedQueryBuilder{Project: "default", Limit: 100})
	require.NoError(t, err)
	assert.Len(t, unused, 7)
}

func TestFindUnusedExcludeGenerated(t *testing.T) {
	fake := backendtest.New()
	fake.QueryStub = func(script string, params map[string]value.Value) (value.ResultSet, error) {
		return unusedFixtureRows(), nil
	}
	unused, err := FindUnused(context.Background(), fake, UnusedQueryBuilder{
		Project: "default", ExcludeGenerated: true, Limit: 100,
	})
	require.NoError(t, err)
	assert.Len(t, unused, 6)
	for _, u := range unused {
		assert.False(t, IsGeneratedName(u.Name))
	}
}

func TestFindUnusedVisibilitySplitIsExhaustive(t *testing.T) {
	fixture := unusedFixtureRows()
	fake := backendtest.New()

	fake.QueryStub = func(script string, params map[string]value.Value) (value.ResultSet, error) {
		return kindFiltered(fixture, "defp", "defmacrop"), nil
	}
	private, err := FindUnused(context.Background(), fake, UnusedQueryBuilder{
		Project: "default", PrivateOnly: true, Limit: 100,
	})
	require.NoError(t, err)
	assert.Len(t, private, 2)

	fake.QueryStub = func(script string, params map[string]value.Value) (value.ResultSet, error) {
		return kindFiltered(fixture, "def", "defmacro"), nil
	}
	public, err := FindUnused(context.Background(), fake, UnusedQueryBuilder{
		Project: "default", PublicOnly: true, Limit: 100,
	})
	require.NoError(t, err)
	assert.Len(t, public, 5)

	assert.Equal(t, len(fixture.Rows), len(private)+len(public))
}

func TestFindUnusedLimitZeroSkipsBackend(t *testing.T) {
	fake := backendtest.New()
	called := false
	fake.QueryStub = func(script string, params map[string]value.Value) (value.ResultSet, error) {
		called = true
		return value.ResultSet{}, nil
	}
	unused, err := FindUnused(context.Background(), fake, UnusedQueryBuilder{Project: "default", Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, unused)
	assert.False(t, called)
}
