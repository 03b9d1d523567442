// Package schema describes the relations stored by the query core and the
// two compilers that lower a relation definition to backend-native DDL,
// batch insert/upsert, delete, and index statements. Each relation is
// pure data, never behavior.
package schema

// DataType enumerates the field types the schema supports.
type DataType int

const (
	TypeString DataType = iota
	TypeInt
	TypeFloat
	TypeBool
)

// Field describes one column of a relation.
type Field struct {
	Name    string
	Type    DataType
	Default *string // nil means no default; required on input
}

// StringDefault is a convenience constructor for a Field with a string
// default value.
func StringDefault(name, def string) Field {
	return Field{Name: name, Type: TypeString, Default: &def}
}

func StringRequired(name string) Field {
	return Field{Name: name, Type: TypeString}
}

func IntRequired(name string) Field {
	return Field{Name: name, Type: TypeInt}
}

func IntDefault(name string, def int64) Field {
	d := formatInt(def)
	return Field{Name: name, Type: TypeInt, Default: &d}
}

func BoolDefault(name string, def bool) Field {
	d := "false"
	if def {
		d = "true"
	}
	return Field{Name: name, Type: TypeBool, Default: &d}
}

func formatInt(i int64) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Relationship describes a derived edge materialized on the graph backend
// only: e.g. Module -defines-> Function.
type Relationship struct {
	Name      string // e.g. "defines", "has_clause", "has_field", "calls"
	Target    string // target relation name
	EdgeLabel string // Cypher relationship type, e.g. "DEFINES"
}

// Relation is the pure data description of one stored entity.
type Relation struct {
	Name          string
	KeyFields     []Field
	ValueFields   []Field
	Relationships []Relationship
}

// AllFields returns KeyFields followed by ValueFields, the column order
// every compiler emits rows in.
func (r Relation) AllFields() []Field {
	out := make([]Field, 0, len(r.KeyFields)+len(r.ValueFields))
	out = append(out, r.KeyFields...)
	out = append(out, r.ValueFields...)
	return out
}

// FieldNames returns just the names of AllFields, in order.
func (r Relation) FieldNames() []string {
	fields := r.AllFields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// KeyFieldNames returns just the names of KeyFields, in order.
func (r Relation) KeyFieldNames() []string {
	names := make([]string, len(r.KeyFields))
	for i, f := range r.KeyFields {
		names[i] = f.Name
	}
	return names
}
