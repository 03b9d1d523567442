package datalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexdb/query-core/internal/value"
)

func TestTranslateSimpleQuery(t *testing.T) {
	script := `?[project, name, source] :=
    *modules{project, name, source},
    project == "myproject",
    str_includes(name, "Accounts")`

	out, err := translateScript(script)
	require.NoError(t, err)

	assert.Equal(t, []string{"project", "name", "source"}, out.Columns)
	assert.Contains(t, out.Source, "Decl result(Project, Name, Source).")
	// Equality with a constant is lowered by substitution, not emitted.
	assert.Contains(t, out.Source, `result("myproject", Name, Source)`)
	assert.Contains(t, out.Source, `modules("myproject", Name, _, Source)`)
	assert.Contains(t, out.Source, `:string:contains(Name, "Accounts")`)
}

func TestTranslateFieldAlias(t *testing.T) {
	script := `?[caller_module, call_line] :=
    *calls{project, caller_module, line: call_line},
    project == "p"`

	out, err := translateScript(script)
	require.NoError(t, err)
	// calls field order: project, caller_module, caller_function,
	// callee_module, callee_function, callee_arity, file, line, column, ...
	assert.Contains(t, out.Source, `calls("p", CallerModule, _, _, _, _, _, CallLine, _, _, _, _)`)
}

func TestTranslateComparisonAndArithmetic(t *testing.T) {
	script := `?[module, name, lines] :=
    *function_locations{project, module, name, start_line, end_line},
    project == "p",
    lines = end_line - start_line + 1,
    lines >= 50`

	out, err := translateScript(script)
	require.NoError(t, err)
	assert.Contains(t, out.Source, "Lines = fn:plus(fn:minus(EndLine, StartLine), 1)")
	assert.Contains(t, out.Source, "Lines >= 50")
}

func TestTranslateRecursiveRule(t *testing.T) {
	script := `trace[depth, caller_module, callee_module] :=
    *calls{project, caller_module, callee_module},
    project == "p",
    depth = 1

trace[depth, caller_module, callee_module] :=
    trace[prev_depth, _, prev_callee],
    *calls{project, caller_module, callee_module},
    caller_module == prev_callee,
    prev_depth < 5,
    depth = prev_depth + 1,
    project == "p"

?[depth, caller_module, callee_module] :=
    trace[depth, caller_module, callee_module]`

	out, err := translateScript(script)
	require.NoError(t, err)

	// One Decl per rule head, not per rule body.
	assert.Equal(t, 1, countOccurrences(out.Source, "Decl trace("))
	assert.Equal(t, 1, countOccurrences(out.Source, "Decl result("))
	assert.Contains(t, out.Source, "Depth = fn:plus(PrevDepth, 1)")
	assert.Contains(t, out.Source, "PrevDepth < 5")
	// Variable-to-variable equality is lowered by renaming: the recursive
	// rule's caller_module becomes the previous callee.
	assert.Contains(t, out.Source, "trace(PrevDepth, _, PrevCallee)")
	assert.Contains(t, out.Source, "trace(Depth, PrevCallee, CalleeModule)")
}

func TestTranslateNegation(t *testing.T) {
	script := `defined[module, name, arity] :=
    *function_locations{project, module, name, arity},
    project == "p"

called[callee_module, callee_function, callee_arity] :=
    *calls{project, callee_module, callee_function, callee_arity},
    project == "p"

?[module, name, arity] :=
    defined[module, name, arity],
    not called[module, name, arity]`

	out, err := translateScript(script)
	require.NoError(t, err)
	assert.Contains(t, out.Source, "!called(Module, Name, Arity)")
}

func TestTranslateAggregation(t *testing.T) {
	script := `hash_counts[ast_sha, count(module)] :=
    *function_locations{project, module, ast_sha},
    project == "p",
    ast_sha != ""`

	out, err := translateScript(script)
	// An aggregation-only script has no result rule; combine with one.
	require.Error(t, err)

	full := script + "\n\n?[ast_sha, cnt] :=\n    hash_counts[ast_sha, cnt],\n    cnt > 1"
	out, err = translateScript(full)
	require.NoError(t, err)
	assert.Contains(t, out.Source, "|> do fn:group_by(AstSha), let Cnt = fn:count()")
	assert.Contains(t, out.Source, `AstSha != ""`)
	assert.Contains(t, out.Source, "Cnt > 1")
}

func TestTranslateRegexAndStartsWith(t *testing.T) {
	script := `?[name] :=
    *modules{project, name},
    project == "p",
    regex_matches(name, "^MyApp"),
    starts_with(name, "My")`

	out, err := translateScript(script)
	require.NoError(t, err)
	assert.Contains(t, out.Source, `:string:matches(Name, "^MyApp")`)
	assert.Contains(t, out.Source, `:string:starts_with(Name, "My")`)
}

func TestTranslateRejectsUnknownRelation(t *testing.T) {
	_, err := translateScript(`?[x] := *nonexistent{x}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown relation")
}

func TestParseScriptStripsDirectives(t *testing.T) {
	source, orderBy, limit, err := parseScript("?[a] := *modules{name: a}\n:order -a, b\n:limit 25")
	require.NoError(t, err)
	assert.NotContains(t, source, ":order")
	assert.Equal(t, []string{"-a", "b"}, orderBy)
	assert.Equal(t, 25, limit)
}

func TestInlineParamsQuotesStrings(t *testing.T) {
	out := inlineParams("name == $pattern, arity == $arity", map[string]value.Value{
		"pattern": value.String(`My"App`),
		"arity":   value.Int(2),
	})
	assert.Equal(t, `name == "My\"App", arity == 2`, out)
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
