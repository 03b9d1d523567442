package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatalogCompilerCreateDDL(t *testing.T) {
	ddl := DatalogCompiler{}.CreateDDL(Modules)
	assert.Contains(t, ddl, ":create modules")
	assert.Contains(t, ddl, "project: String")
	assert.Contains(t, ddl, `source: String default "unknown"`)
}

func TestDatalogCompilerDeleteByProject(t *testing.T) {
	del := DatalogCompiler{}.DeleteByProject(Functions)
	assert.Contains(t, del, ":rm functions")
	assert.Contains(t, del, "project == $project")
}

func TestDatalogCompilerHasNoIndexes(t *testing.T) {
	assert.Nil(t, DatalogCompiler{}.CreateIndexes(Functions))
}

func TestGraphCompilerRelationToVertexLabel(t *testing.T) {
	cases := map[string]string{
		"modules":            "Module",
		"functions":          "Function",
		"calls":              "Call",
		"specs":              "Spec",
		"types":              "Type",
		"struct_fields":      "StructField",
		"function_locations": "FunctionLocation",
		"unknown_relation":   "unknown_relation",
	}
	for rel, label := range cases {
		assert.Equal(t, label, RelationToVertexLabel(rel), rel)
	}
}

func TestGraphCompilerBatchInsert(t *testing.T) {
	c := GraphCompiler{}
	script := c.BatchInsert(Modules)
	assert.Contains(t, script, "UNWIND $rows AS row")
	assert.Contains(t, script, "CREATE (n:Module")
	assert.Contains(t, script, "project: row.project")
}

func TestGraphCompilerBatchUpsert(t *testing.T) {
	c := GraphCompiler{}
	script := c.BatchUpsert(Modules)
	assert.Contains(t, script, "MERGE (n:Module { project: row.project, name: row.name })")
	assert.Contains(t, script, "SET n.file = row.file, n.source = row.source")
}

func TestGraphCompilerDeleteByProject(t *testing.T) {
	c := GraphCompiler{}
	script := c.DeleteByProject(Calls)
	assert.Equal(t, "MATCH (n:Call) WHERE n.project = $project DETACH DELETE n", script)
}

func TestGraphCompilerCreateIndexes(t *testing.T) {
	c := GraphCompiler{}
	idx := c.CreateIndexes(Functions)
	assert.Len(t, idx, 1)
	assert.Contains(t, idx[0], "CREATE INDEX IF NOT EXISTS idx_functions_keys ON Function")
	assert.Contains(t, idx[0], "n.project, n.module, n.name, n.arity")
}

func TestCoreRelationsHasSeven(t *testing.T) {
	assert.Len(t, CoreRelations, 7)
}
