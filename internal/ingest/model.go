// Package ingest parses extracted call-graph JSON and writes it into a
// backend in consistent chunks, deriving modules and, on the graph
// backend, the defines/has_clause/has_field/calls relationships.
package ingest

import (
	"strconv"
	"strings"
)

// Document is the JSON shape the extractor produces: one section per
// entity kind, keyed by module where the source groups by module.
type Document struct {
	Structs           map[string]StructDef                 `json:"structs"`
	FunctionLocations map[string]map[string]FunctionLocDef `json:"function_locations"`
	Calls             []CallDef                            `json:"calls"`
	Specs             map[string][]SpecDef                 `json:"specs"`
	Types             map[string][]TypeDef                 `json:"types"`
}

type StructDef struct {
	Fields []StructFieldDef `json:"fields"`
}

type StructFieldDef struct {
	Field        string  `json:"field"`
	Default      string  `json:"default"`
	Required     bool    `json:"required"`
	InferredType *string `json:"inferred_type"`
}

// FunctionLocDef is one function clause. Name and Arity may be absent
// from the body; they are then parsed from the section key
// ("name/arity:line").
type FunctionLocDef struct {
	Name               string  `json:"name"`
	Arity              *int64  `json:"arity"`
	Line               int64   `json:"line"`
	StartLine          int64   `json:"start_line"`
	EndLine            int64   `json:"end_line"`
	Kind               string  `json:"kind"`
	File               string  `json:"file"`
	SourceFileAbsolute *string `json:"source_file_absolute"`
	Column             *int64  `json:"column"`
	Pattern            *string `json:"pattern"`
	Guard              *string `json:"guard"`
	SourceSha          *string `json:"source_sha"`
	AstSha             *string `json:"ast_sha"`
	Complexity         *int64  `json:"complexity"`
	MaxNestingDepth    *int64  `json:"max_nesting_depth"`
	GeneratedBy        *string `json:"generated_by"`
	MacroSource        *string `json:"macro_source"`
}

type CallDef struct {
	Caller   CallerDef `json:"caller"`
	Callee   CalleeDef `json:"callee"`
	CallType string    `json:"type"`
}

type CallerDef struct {
	Module   string  `json:"module"`
	Function *string `json:"function"`
	File     string  `json:"file"`
	Line     *int64  `json:"line"`
	Column   *int64  `json:"column"`
	Kind     *string `json:"kind"`
}

type CalleeDef struct {
	Module   string   `json:"module"`
	Function string   `json:"function"`
	Arity    int64    `json:"arity"`
	Args     []string `json:"args"`
}

type SpecDef struct {
	Name    string          `json:"name"`
	Arity   int64           `json:"arity"`
	Line    int64           `json:"line"`
	Kind    string          `json:"kind"`
	Clauses []SpecClauseDef `json:"clauses"`
}

type SpecClauseDef struct {
	Full          string   `json:"full"`
	InputStrings  []string `json:"input_strings"`
	ReturnStrings []string `json:"return_strings"`
}

type TypeDef struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Params     []string `json:"params"`
	Line       int64    `json:"line"`
	Definition string   `json:"definition"`
}

// parseClauseKey splits a "name/arity:line" section key. Absent segments
// come back zero; the body's own fields win when present.
func parseClauseKey(key string) (name string, arity int64, line int64) {
	rest := key
	if idx := strings.LastIndexByte(rest, ':'); idx >= 0 {
		if n, err := strconv.ParseInt(rest[idx+1:], 10, 64); err == nil {
			line = n
			rest = rest[:idx]
		}
	}
	if idx := strings.LastIndexByte(rest, '/'); idx >= 0 {
		if n, err := strconv.ParseInt(rest[idx+1:], 10, 64); err == nil {
			arity = n
			rest = rest[:idx]
		}
	}
	return rest, arity, line
}

// normalize applies the declared defaults to one clause: name, arity and
// line come from the clause key when absent, complexity floors at 1 and
// nesting depth at 0. The optional string fields get their schema
// defaults later, when the row is built (strOr).
func (f *FunctionLocDef) normalize(key string) {
	name, arity, line := parseClauseKey(key)
	if f.Name == "" {
		f.Name = name
	}
	if f.Arity == nil {
		f.Arity = &arity
	}
	if f.Line == 0 {
		f.Line = line
	}
	if f.Complexity == nil || *f.Complexity < 1 {
		one := int64(1)
		f.Complexity = &one
	}
	if f.MaxNestingDepth == nil || *f.MaxNestingDepth < 0 {
		zero := int64(0)
		f.MaxNestingDepth = &zero
	}
}

func strOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int64, def int64) int64 {
	if p == nil {
		return def
	}
	return *p
}

// ModuleSet computes the union of modules referenced by specs,
// function locations, structs, and types.
func (d Document) ModuleSet() []string {
	seen := make(map[string]bool)
	for m := range d.Specs {
		seen[m] = true
	}
	for m := range d.FunctionLocations {
		seen[m] = true
	}
	for m := range d.Structs {
		seen[m] = true
	}
	for m := range d.Types {
		seen[m] = true
	}
	modules := make([]string, 0, len(seen))
	for m := range seen {
		modules = append(modules, m)
	}
	return modules
}
