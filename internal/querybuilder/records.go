package querybuilder

// Typed records the query families decode backend rows into. Field sets
// mirror the stored relations in internal/schema; decoders fill them via
// decode.RowLayout, never by position.

// FunctionRef identifies a function by its full identity triple.
type FunctionRef struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Arity  int64  `json:"arity"`
}

// Call is one call edge joined with the caller's function-location
// metadata (arity, kind, line range).
type Call struct {
	CallerModule    string `json:"caller_module"`
	CallerName      string `json:"caller_name"`
	CallerArity     int64  `json:"caller_arity"`
	CallerKind      string `json:"caller_kind"`
	CallerStartLine int64  `json:"caller_start_line"`
	CallerEndLine   int64  `json:"caller_end_line"`
	CalleeModule    string `json:"callee_module"`
	CalleeFunction  string `json:"callee_function"`
	CalleeArity     int64  `json:"callee_arity"`
	File            string `json:"file"`
	Line            int64  `json:"line"`
}

// ReverseTraceStep is one step of a reverse call chain, depth 1 being the
// direct callers of the target.
type ReverseTraceStep struct {
	Depth int64 `json:"depth"`
	Call
}

// PathStep is one edge on a call path.
type PathStep struct {
	Depth          int64  `json:"depth"`
	CallerModule   string `json:"caller_module"`
	CallerFunction string `json:"caller_function"`
	CalleeModule   string `json:"callee_module"`
	CalleeFunction string `json:"callee_function"`
	CalleeArity    int64  `json:"callee_arity"`
	File           string `json:"file"`
	Line           int64  `json:"line"`
}

// CallPath is a complete path from source to target.
type CallPath struct {
	Steps []PathStep `json:"steps"`
}

// DuplicateFunction is a function sharing a non-empty AST or source hash
// with at least one other function in the same project.
type DuplicateFunction struct {
	Hash        string `json:"hash"`
	Module      string `json:"module"`
	Name        string `json:"name"`
	Arity       int64  `json:"arity"`
	Line        int64  `json:"line"`
	File        string `json:"file"`
	GeneratedBy string `json:"generated_by"`
}

// UnusedFunction is a defined function that never appears as a callee.
type UnusedFunction struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Arity  int64  `json:"arity"`
	Kind   string `json:"kind"`
	File   string `json:"file"`
	Line   int64  `json:"line"`
}

// LargeFunction is a function whose clause spans at least MinLines lines.
type LargeFunction struct {
	Module      string `json:"module"`
	Name        string `json:"name"`
	Arity       int64  `json:"arity"`
	StartLine   int64  `json:"start_line"`
	EndLine     int64  `json:"end_line"`
	Lines       int64  `json:"lines"`
	File        string `json:"file"`
	GeneratedBy string `json:"generated_by"`
}

// ReturnEntry is a spec whose return string matches a pattern.
type ReturnEntry struct {
	Project      string `json:"project"`
	Module       string `json:"module"`
	Name         string `json:"name"`
	Arity        int64  `json:"arity"`
	ReturnString string `json:"return_string"`
	Line         int64  `json:"line"`
}

// StructUsageEntry is a spec that accepts or returns a given type.
type StructUsageEntry struct {
	Project      string `json:"project"`
	Module       string `json:"module"`
	Name         string `json:"name"`
	Arity        int64  `json:"arity"`
	InputsString string `json:"inputs_string"`
	ReturnString string `json:"return_string"`
	Line         int64  `json:"line"`
}

// TypeInfo is a type definition row.
type TypeInfo struct {
	Project    string `json:"project"`
	Module     string `json:"module"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Params     string `json:"params"`
	Line       int64  `json:"line"`
	Definition string `json:"definition"`
}

// FunctionSignature is a function row with its argument and return types.
type FunctionSignature struct {
	Project    string `json:"project"`
	Module     string `json:"module"`
	Name       string `json:"name"`
	Arity      int64  `json:"arity"`
	Args       string `json:"args"`
	ReturnType string `json:"return_type"`
}

// Location is one function clause's position in the source tree.
type Location struct {
	Project   string `json:"project"`
	File      string `json:"file"`
	Line      int64  `json:"line"`
	StartLine int64  `json:"start_line"`
	EndLine   int64  `json:"end_line"`
	Module    string `json:"module"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Arity     int64  `json:"arity"`
	Pattern   string `json:"pattern"`
	Guard     string `json:"guard"`
}

// ModuleResult is a module search hit.
type ModuleResult struct {
	Project string `json:"project"`
	Name    string `json:"name"`
	Source  string `json:"source"`
}

// FunctionResult is a function search hit.
type FunctionResult struct {
	Project    string `json:"project"`
	Module     string `json:"module"`
	Name       string `json:"name"`
	Arity      int64  `json:"arity"`
	ReturnType string `json:"return_type"`
}

// ModuleCall is one inter-module call edge, the raw input of cluster
// analysis.
type ModuleCall struct {
	CallerModule string `json:"caller_module"`
	CalleeModule string `json:"callee_module"`
}

// Cluster aggregates the modules of one namespace prefix with their
// connectivity metrics.
type Cluster struct {
	Namespace     string   `json:"namespace"`
	Modules       []string `json:"modules"`
	InternalCalls int      `json:"internal_calls"`
	ExternalCalls int      `json:"external_calls"`
	Efferent      int      `json:"efferent"`
	Afferent      int      `json:"afferent"`
	Cohesion      float64  `json:"cohesion"`
	Instability   float64  `json:"instability"`
}
