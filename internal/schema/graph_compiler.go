package schema

import "strings"

// GraphCompiler emits the Cypher text the graph (AGE-style) backend
// executes.
type GraphCompiler struct{}

func (GraphCompiler) label(rel Relation) string {
	return RelationToVertexLabel(rel.Name)
}

func (GraphCompiler) CreateDDL(rel Relation) string {
	// The graph backend has no separate "create relation" DDL: a vertex
	// label exists implicitly the first time a vertex of that label is
	// created. CreateDDL documents the expected shape for setup_backend's
	// validate_schema_query probe (relation_exists).
	label := RelationToVertexLabel(rel.Name)
	var b strings.Builder
	b.WriteString("// vertex label: ")
	b.WriteString(label)
	b.WriteString("\n// properties:\n")
	for _, f := range rel.AllFields() {
		b.WriteString("//   ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(dataTypeName(f.Type))
		if f.Default != nil {
			b.WriteString(" (default ")
			b.WriteString(*f.Default)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (c GraphCompiler) CreateIndexes(rel Relation) []string {
	if len(rel.KeyFields) == 0 {
		return nil
	}
	label := c.label(rel)
	cols := make([]string, len(rel.KeyFields))
	for i, f := range rel.KeyFields {
		cols[i] = "n." + f.Name
	}
	return []string{
		"CREATE INDEX IF NOT EXISTS idx_" + rel.Name + "_keys ON " + label + "(" + strings.Join(cols, ", ") + ")",
	}
}

func (c GraphCompiler) BatchInsert(rel Relation) string {
	label := c.label(rel)
	var b strings.Builder
	b.WriteString("UNWIND $rows AS row CREATE (n:")
	b.WriteString(label)
	b.WriteString(" { ")
	fields := rel.FieldNames()
	for i, name := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(": row.")
		b.WriteString(name)
	}
	b.WriteString(" })")
	return b.String()
}

func (c GraphCompiler) BatchUpsert(rel Relation) string {
	label := c.label(rel)
	var b strings.Builder
	b.WriteString("UNWIND $rows AS row MERGE (n:")
	b.WriteString(label)
	b.WriteString(" { ")
	keys := rel.KeyFieldNames()
	for i, name := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(": row.")
		b.WriteString(name)
	}
	b.WriteString(" }) SET ")
	values := rel.ValueFields
	if len(values) == 0 {
		// nothing to SET; MERGE alone is a valid statement.
		return strings.TrimSuffix(b.String(), " SET ")
	}
	for i, f := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("n.")
		b.WriteString(f.Name)
		b.WriteString(" = row.")
		b.WriteString(f.Name)
	}
	return b.String()
}

func (c GraphCompiler) DeleteByProject(rel Relation) string {
	label := c.label(rel)
	return "MATCH (n:" + label + ") WHERE n.project = $project DETACH DELETE n"
}

// InitGraphQuery probes the graph catalog; SetupBackend uses it to
// decide whether the named graph must be created.
func InitGraphQuery(graphName string) string {
	return "SELECT * FROM ag_graph WHERE name = '" + graphName + "'"
}

// ValidateSchemaQuery probes for the existence of a vertex label; the
// backend's RelationExists runs it.
func ValidateSchemaQuery(rel Relation) string {
	return "MATCH (n:" + RelationToVertexLabel(rel.Name) + ") RETURN count(*) as count"
}
