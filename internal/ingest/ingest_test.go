package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexdb/query-core/internal/backend/backendtest"
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/schema"
	"github.com/cortexdb/query-core/internal/value"
)

func fixtureDocument() Document {
	return Document{
		Structs: map[string]StructDef{
			"MyApp.User": {Fields: []StructFieldDef{
				{Field: "name", Default: "nil", Required: true},
				{Field: "email", Default: "nil", Required: false},
			}},
		},
		FunctionLocations: map[string]map[string]FunctionLocDef{
			"MyApp.Accounts": {
				"get_user/1:10": {
					File: "lib/accounts.ex", Kind: "def",
					Line: 10, StartLine: 10, EndLine: 15,
				},
			},
		},
		Calls: []CallDef{
			{
				Caller:   CallerDef{Module: "MyApp.Controller", Function: strp("show/2"), File: "lib/controller.ex", Line: intp(12)},
				Callee:   CalleeDef{Module: "MyApp.Accounts", Function: "get_user", Arity: 1},
				CallType: "remote",
			},
		},
		Specs: map[string][]SpecDef{
			"MyApp.Repo": {
				{
					Name: "get", Arity: 2, Line: 19, Kind: "spec",
					Clauses: []SpecClauseDef{
						{
							Full:          "@spec get(module(), id()) :: {:ok, User.t()} | {:error, reason()}",
							InputStrings:  []string{"module()", "id()"},
							ReturnStrings: []string{"{:ok, User.t()}", "{:error, reason()}"},
						},
					},
				},
			},
		},
		Types: map[string][]TypeDef{
			"MyApp.Accounts": {
				{Name: "reason", Kind: "type", Params: nil, Line: 3, Definition: "atom()"},
			},
		},
	}
}

func strp(s string) *string { return &s }
func intp(n int64) *int64   { return &n }

func TestImportDerivesModuleUnion(t *testing.T) {
	fake := backendtest.New()
	im := NewImporter(fake)

	result, err := im.Import(context.Background(), "default", fixtureDocument())
	require.NoError(t, err)

	// Modules = union of specs, function_locations, structs, types keys.
	assert.Equal(t, 3, result.Modules)
	rows := fake.Rows("modules")
	require.Len(t, rows, 3)
	names := map[string]bool{}
	for _, row := range rows {
		name, ok := row[1].AsString()
		require.True(t, ok)
		names[name] = true
		// file defaults empty, source defaults "unknown"
		assert.Equal(t, value.String(""), row[2])
		assert.Equal(t, value.String("unknown"), row[3])
	}
	for _, want := range []string{"MyApp.User", "MyApp.Accounts", "MyApp.Repo"} {
		assert.True(t, names[want], want)
	}
}

func TestImportAppliesClauseDefaults(t *testing.T) {
	fake := backendtest.New()
	im := NewImporter(fake)

	_, err := im.Import(context.Background(), "default", fixtureDocument())
	require.NoError(t, err)

	rows := fake.Rows("function_locations")
	require.Len(t, rows, 1)
	row := rows[0]
	// Key: project, module, name, arity, line
	assert.Equal(t, value.String("MyApp.Accounts"), row[1])
	assert.Equal(t, value.String("get_user"), row[2])
	assert.Equal(t, value.Int(1), row[3])
	assert.Equal(t, value.Int(10), row[4])
	// complexity defaults to 1, max_nesting_depth to 0
	assert.Equal(t, value.Int(1), row[15])
	assert.Equal(t, value.Int(0), row[16])
	// source_file_absolute is never left unset
	assert.Equal(t, value.String(""), row[6])
}

func TestImportJoinsSpecStringsOnDatalog(t *testing.T) {
	fake := backendtest.New() // datalog dialect by default
	im := NewImporter(fake)

	_, err := im.Import(context.Background(), "default", fixtureDocument())
	require.NoError(t, err)

	rows := fake.Rows("specs")
	require.Len(t, rows, 1)
	inputs, ok := rows[0][6].AsString()
	require.True(t, ok)
	returns, ok := rows[0][7].AsString()
	require.True(t, ok)
	assert.Equal(t, "module(), id()", inputs)
	assert.Equal(t, "{:ok, User.t()} | {:error, reason()}", returns)
}

func TestImportPreservesSpecArraysOnGraph(t *testing.T) {
	fake := backendtest.New()
	fake.FakeDialect = querycond.DialectGraph
	im := NewImporter(fake)

	_, err := im.Import(context.Background(), "default", fixtureDocument())
	require.NoError(t, err)

	rows := fake.Rows("specs")
	require.Len(t, rows, 1)
	inputs, ok := rows[0][6].AsArray()
	require.True(t, ok)
	returns, ok := rows[0][7].AsArray()
	require.True(t, ok)
	// Cardinality matches the input's clause count.
	assert.Len(t, inputs, 1)
	assert.Len(t, returns, 1)
}

func TestImportClearsProjectFirst(t *testing.T) {
	fake := backendtest.New()
	im := NewImporter(fake)

	_, err := im.Import(context.Background(), "default", fixtureDocument())
	require.NoError(t, err)
	first := len(fake.Rows("calls"))

	// Re-import must not double the rows.
	_, err = im.Import(context.Background(), "default", fixtureDocument())
	require.NoError(t, err)
	assert.Equal(t, first, len(fake.Rows("calls")))
}

func TestImportFileErrors(t *testing.T) {
	fake := backendtest.New()
	im := NewImporter(fake)

	_, err := im.ImportFile(context.Background(), "default", "/nonexistent/graph.json")
	var importErr *cortexerr.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, cortexerr.FileReadFailed, importErr.Kind)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = im.ImportFile(context.Background(), "default", bad)
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, cortexerr.JsonParseFailed, importErr.Kind)
}

func TestParseClauseKey(t *testing.T) {
	name, arity, line := parseClauseKey("get_user/1:10")
	assert.Equal(t, "get_user", name)
	assert.Equal(t, int64(1), arity)
	assert.Equal(t, int64(10), line)

	name, arity, line = parseClauseKey("handle_call")
	assert.Equal(t, "handle_call", name)
	assert.Equal(t, int64(0), arity)
	assert.Equal(t, int64(0), line)
}

func TestResolveCallerClause(t *testing.T) {
	doc := fixtureDocument()
	id := resolveCallerClause(doc, "MyApp.Accounts", 12)
	assert.Equal(t, "MyApp.Accounts:get_user/1:10", id)

	assert.Empty(t, resolveCallerClause(doc, "MyApp.Accounts", 99))
	assert.Empty(t, resolveCallerClause(doc, "Missing.Module", 12))
}

// failingBackend wraps the fake and fails inserts into one relation, to
// exercise the chunk-failure contract.
type failingBackend struct {
	*backendtest.Fake
	failRelation string
}

func (f *failingBackend) InsertRows(ctx context.Context, rel schema.Relation, rows []value.Row) (int, error) {
	if rel.Name == f.failRelation {
		return 0, errors.New("chunk rejected")
	}
	return f.Fake.InsertRows(ctx, rel, rows)
}

func TestImportChunkFailureAbortsImport(t *testing.T) {
	fake := &failingBackend{Fake: backendtest.New(), failRelation: "calls"}
	im := NewImporter(fake)

	_, err := im.Import(context.Background(), "default", fixtureDocument())
	var importErr *cortexerr.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, cortexerr.ImportFailed, importErr.Kind)
	assert.Contains(t, err.Error(), "calls")

	// Sections committed before the failure remain observable.
	assert.NotEmpty(t, fake.Rows("modules"))
}
