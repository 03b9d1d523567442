// Package value implements the backend-neutral tagged value and row model
// shared by both the Datalog and graph query backends.
package value

import "fmt"

// Kind tags the dynamic type carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindArray
	KindThingID
)

// ThingID is the graph backend's composite record identifier: a vertex
// label plus its internal id, carried opaquely by callers that only need
// to round-trip it (e.g. into a subsequent MATCH).
type ThingID struct {
	Label string
	ID    string
}

// Value is the tagged union every row cell is represented as. Zero value is
// KindNull.
type Value struct {
	kind    Kind
	str     string
	i       int64
	f       float64
	b       bool
	arr     []Value
	thingID ThingID
}

func Null() Value            { return Value{kind: KindNull} }
func String(s string) Value  { return Value{kind: KindString, str: s} }
func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Array(vs []Value) Value { return Value{kind: KindArray, arr: vs} }
func Thing(t ThingID) Value  { return Value{kind: KindThingID, thingID: t} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString is a total coercion: only KindString yields ok=true.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsStringOr coerces to string, returning def on mismatch or null.
func (v Value) AsStringOr(def string) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return def
}

// AsInt64 is a total coercion: only KindInt yields ok=true.
func (v Value) AsInt64() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) AsInt64Or(def int64) int64 {
	if i, ok := v.AsInt64(); ok {
		return i
	}
	return def
}

func (v Value) AsFloat64() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsBoolOr coerces to bool, returning def on mismatch or null.
func (v Value) AsBoolOr(def bool) bool {
	if v.kind != KindBool {
		return def
	}
	return v.b
}

func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

func (v Value) AsThingID() (ThingID, bool) {
	if v.kind != KindThingID {
		return ThingID{}, false
	}
	return v.thingID, true
}

// String renders the value for debugging and for inlining into Cypher
// literal text (see backend/graphdb for the escaped variant).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return v.str
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindArray:
		return fmt.Sprintf("%v", v.arr)
	case KindThingID:
		return fmt.Sprintf("%s:%s", v.thingID.Label, v.thingID.ID)
	default:
		return ""
	}
}
