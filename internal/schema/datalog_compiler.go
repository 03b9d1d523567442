package schema

import "strings"

// DatalogCompiler emits CozoScript-style schema text: a ":create"
// declaration per relation (the Datalog backend builds its mangle Decl
// from the relation's field names, not from this text) plus ":put"
// and ":rm" mutation scripts the Datalog backend accepts as a textual
// shorthand before translating them into mangle facts.
type DatalogCompiler struct{}

func (DatalogCompiler) CreateDDL(rel Relation) string {
	var b strings.Builder
	b.WriteString(":create ")
	b.WriteString(rel.Name)
	b.WriteString(" { ")
	for i, f := range rel.KeyFields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(dataTypeName(f.Type))
	}
	b.WriteString(" => ")
	for i, f := range rel.ValueFields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(dataTypeName(f.Type))
		if f.Default != nil {
			b.WriteString(" default ")
			b.WriteString(quoteIfString(f.Type, *f.Default))
		}
	}
	b.WriteString(" }")
	return b.String()
}

// CreateIndexes always returns nil for the Datalog compiler: the engine
// indexes by key fields automatically.
func (DatalogCompiler) CreateIndexes(rel Relation) []string {
	return nil
}

func (DatalogCompiler) BatchInsert(rel Relation) string {
	var b strings.Builder
	b.WriteString(":put ")
	b.WriteString(rel.Name)
	b.WriteString(" { ")
	b.WriteString(strings.Join(rel.FieldNames(), ", "))
	b.WriteString(" }")
	return b.String()
}

func (DatalogCompiler) BatchUpsert(rel Relation) string {
	// mangle has no native MERGE; upsert is expressed as a put over the
	// same key columns, which the engine's InsertRows/UpsertRows
	// implementation treats as replace-by-key.
	var b strings.Builder
	b.WriteString(":put ")
	b.WriteString(rel.Name)
	b.WriteString(" { ")
	b.WriteString(strings.Join(rel.FieldNames(), ", "))
	b.WriteString(" }")
	return b.String()
}

func (DatalogCompiler) DeleteByProject(rel Relation) string {
	var b strings.Builder
	b.WriteString(":rm ")
	b.WriteString(rel.Name)
	b.WriteString(" { ")
	b.WriteString(strings.Join(rel.KeyFieldNames(), ", "))
	b.WriteString(" } :- *")
	b.WriteString(rel.Name)
	b.WriteString("{ ")
	b.WriteString(strings.Join(rel.KeyFieldNames(), ", "))
	b.WriteString(" }, project == $project")
	return b.String()
}

func quoteIfString(t DataType, v string) string {
	if t == TypeString {
		return `"` + v + `"`
	}
	return v
}
