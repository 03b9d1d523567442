package querybuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-output checks for the single-relation query families sharing
// the condition-builder/order/limit skeleton.

func TestLargeFunctionsDatalog(t *testing.T) {
	b := LargeFunctionsQueryBuilder{MinLines: 50, Project: "myproject", Limit: 100}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)

	assert.Contains(t, script, "*function_locations")
	assert.Contains(t, script, "lines = end_line - start_line + 1")
	assert.Contains(t, script, "lines >= $min_lines")
	assert.Contains(t, script, `generated_by == ""`)
	assert.Contains(t, script, ":order -lines, module, name")
}

func TestLargeFunctionsDatalogIncludeGenerated(t *testing.T) {
	b := LargeFunctionsQueryBuilder{MinLines: 10, Project: "p", IncludeGenerated: true, Limit: 10}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.NotContains(t, script, "generated_by ==")
}

func TestLargeFunctionsGraphOrdersDescending(t *testing.T) {
	b := LargeFunctionsQueryBuilder{MinLines: 50, Project: "p", Limit: 100}
	script, err := b.Compile(DialectGraph)
	require.NoError(t, err)
	assert.Contains(t, script, "ORDER BY lines DESC, module, name")
	assert.Contains(t, script, "(loc.end_line - loc.start_line + 1) >= $min_lines")
}

func TestReturnsDatalogSubstringMatch(t *testing.T) {
	b := ReturnsQueryBuilder{Pattern: "{:ok", Project: "p", Limit: 100}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "*specs")
	assert.Contains(t, script, "str_includes(return_string, $pattern)")

	b.UseRegex = true
	script, err = b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "regex_matches(return_string, $pattern)")
}

func TestReturnsGraphContains(t *testing.T) {
	b := ReturnsQueryBuilder{Pattern: "nil", Project: "p", Limit: 100}
	script, err := b.Compile(DialectGraph)
	require.NoError(t, err)
	assert.Contains(t, script, "s.return_string CONTAINS $pattern")
}

func TestStructUsageMatchesEitherSide(t *testing.T) {
	b := StructUsageQueryBuilder{TypePattern: "User.t()", Project: "p", Limit: 100}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "str_includes(inputs_string, $type_pattern)")
	assert.Contains(t, script, "str_includes(return_string, $type_pattern)")

	script, err = b.Compile(DialectGraph)
	require.NoError(t, err)
	assert.Contains(t, script, "s.inputs_string CONTAINS $type_pattern OR s.return_string CONTAINS $type_pattern")
}

func TestTypesQueryBothDialects(t *testing.T) {
	b := TypesQueryBuilder{ModulePattern: "MyApp", NamePattern: "t", Project: "p", Limit: 10}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "*types")
	assert.Contains(t, script, "module == $module_pattern")

	script, err = b.Compile(DialectGraph)
	require.NoError(t, err)
	assert.Contains(t, script, "MATCH (t:Type)")
	assert.Contains(t, script, "t.name = $name_pattern")
}

func TestFunctionsQueryOptionalArity(t *testing.T) {
	b := FunctionsQueryBuilder{ModulePattern: "M", FunctionPattern: "f", Project: "p", Limit: 10}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.NotContains(t, script, "$arity")

	b.Arity = int64ptr(2)
	script, err = b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "arity == $arity")
}

func TestLocationsQueryOptionalModule(t *testing.T) {
	b := LocationsQueryBuilder{FunctionPattern: "get_user", Project: "p", Limit: 10}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "name == $function_pattern")
	assert.NotContains(t, script, "$module_pattern")
	assert.Contains(t, script, ":order module, name, arity, line")

	b.ModulePattern = strptr("MyApp")
	script, err = b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "module == $module_pattern")
}

func TestSearchQueryModulesAndFunctions(t *testing.T) {
	b := SearchQueryBuilder{Kind: SearchModules, Pattern: "Accounts", Project: "p", Limit: 20}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "*modules")
	assert.Contains(t, script, "str_includes(name, $pattern)")
	assert.Contains(t, script, ":order name")

	b.Kind = SearchFunctions
	script, err = b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "*functions")
	assert.Contains(t, script, ":order module, name, arity")
}

func TestDependenciesDatalogExcludesSelfEdges(t *testing.T) {
	b := DependenciesQueryBuilder{
		Direction: DirectionOutgoing, ModulePattern: "MyApp.Server",
		Project: "myproject", Limit: 100,
	}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)

	assert.Contains(t, script, "caller_module != callee_module")
	assert.Contains(t, script, "callee_function != '%'")
	assert.Contains(t, script, "caller_module == $module_pattern")
	assert.Contains(t, script, ":order callee_module, callee_function, callee_arity")
}

func TestDependenciesIncomingFiltersCallee(t *testing.T) {
	b := DependenciesQueryBuilder{
		Direction: DirectionIncoming, ModulePattern: "MyApp.Repo",
		Project: "myproject", Limit: 100,
	}
	script, err := b.Compile(DialectDatalog)
	require.NoError(t, err)
	assert.Contains(t, script, "callee_module == $module_pattern")
	assert.Contains(t, script, ":order caller_module, caller_name, caller_arity")
}

func TestDependenciesGraph(t *testing.T) {
	b := DependenciesQueryBuilder{
		Direction: DirectionOutgoing, ModulePattern: "MyApp.Server",
		Project: "myproject", Limit: 100,
	}
	script, err := b.Compile(DialectGraph)
	require.NoError(t, err)
	assert.Contains(t, script, "c.caller_module <> c.callee_module")
	assert.Contains(t, script, "c.caller_function STARTS WITH loc.name")
}

func TestValidateLimitRange(t *testing.T) {
	assert.NoError(t, ValidateLimit(1))
	assert.NoError(t, ValidateLimit(1000))
	assert.Error(t, ValidateLimit(0))
	assert.Error(t, ValidateLimit(1001))
}

func TestFileFilterScopeAndExclude(t *testing.T) {
	f, err := CompileFileFilter(FileFilter{
		Scope:   []string{"lib/**"},
		Exclude: []string{"lib/generated/**"},
	})
	require.NoError(t, err)

	assert.True(t, f.Matches("lib/accounts.ex"))
	assert.False(t, f.Matches("test/accounts_test.exs"))
	assert.False(t, f.Matches("lib/generated/schema.ex"))

	calls := []Call{
		{File: "lib/accounts.ex"},
		{File: "test/accounts_test.exs"},
	}
	assert.Len(t, f.FilterCalls(calls), 1)
}

func TestFileFilterInvalidGlob(t *testing.T) {
	_, err := CompileFileFilter(FileFilter{Scope: []string{"[unclosed"}})
	assert.Error(t, err)
}
