package schema

// Compiler lowers a Relation into backend-native text: creation DDL,
// indexes, batch insert/upsert statements, and a per-project delete
// statement. Both implementations are deterministic and depend only on the
// schema data; unit tests check their output for expected fragments on a
// few relations, and the graph delete statement as an exact string.
type Compiler interface {
	CreateDDL(rel Relation) string
	CreateIndexes(rel Relation) []string
	BatchInsert(rel Relation) string
	BatchUpsert(rel Relation) string
	DeleteByProject(rel Relation) string
}

// RelationToVertexLabel maps a relation name to its graph-backend vertex
// label.
func RelationToVertexLabel(relationName string) string {
	switch relationName {
	case "modules":
		return "Module"
	case "functions":
		return "Function"
	case "calls":
		return "Call"
	case "specs":
		return "Spec"
	case "types":
		return "Type"
	case "struct_fields":
		return "StructField"
	case "function_locations":
		return "FunctionLocation"
	default:
		return relationName
	}
}

func dataTypeName(t DataType) string {
	switch t {
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBool:
		return "Bool"
	default:
		return "String"
	}
}
