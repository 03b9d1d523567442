package schema

// The seven core relations. Every relation follows the same key/value
// field split; keys identify a row, values carry its payload and may
// declare defaults.

var Modules = Relation{
	Name: "modules",
	KeyFields: []Field{
		StringRequired("project"),
		StringRequired("name"),
	},
	ValueFields: []Field{
		StringDefault("file", ""),
		StringDefault("source", "unknown"),
	},
}

var Functions = Relation{
	Name: "functions",
	KeyFields: []Field{
		StringRequired("project"),
		StringRequired("module"),
		StringRequired("name"),
		IntRequired("arity"),
	},
	ValueFields: []Field{
		StringDefault("return_type", ""),
		StringDefault("args", ""),
		StringDefault("source", "unknown"),
	},
	Relationships: []Relationship{
		{Name: "defines", Target: "modules", EdgeLabel: "DEFINES"},
	},
}

var FunctionLocations = Relation{
	Name: "function_locations",
	KeyFields: []Field{
		StringRequired("project"),
		StringRequired("module"),
		StringRequired("name"),
		IntRequired("arity"),
		IntRequired("line"),
	},
	ValueFields: []Field{
		StringDefault("file", ""),
		StringDefault("source_file_absolute", ""),
		IntDefault("column", 0),
		StringRequired("kind"),
		IntRequired("start_line"),
		IntRequired("end_line"),
		StringDefault("pattern", ""),
		StringDefault("guard", ""),
		StringDefault("source_sha", ""),
		StringDefault("ast_sha", ""),
		IntDefault("complexity", 1),
		IntDefault("max_nesting_depth", 0),
		StringDefault("generated_by", ""),
		StringDefault("macro_source", ""),
	},
	Relationships: []Relationship{
		{Name: "has_clause", Target: "functions", EdgeLabel: "HAS_CLAUSE"},
	},
}

var Calls = Relation{
	Name: "calls",
	KeyFields: []Field{
		StringRequired("project"),
		StringRequired("caller_module"),
		StringRequired("caller_function"),
		StringRequired("callee_module"),
		StringRequired("callee_function"),
		IntRequired("callee_arity"),
		StringDefault("file", ""),
		IntRequired("line"),
		IntDefault("column", 0),
	},
	ValueFields: []Field{
		StringDefault("call_type", ""),
		StringDefault("caller_kind", ""),
		StringDefault("callee_args", ""),
	},
}

var StructFields = Relation{
	Name: "struct_fields",
	KeyFields: []Field{
		StringRequired("project"),
		StringRequired("module"),
		StringRequired("field"),
	},
	ValueFields: []Field{
		StringDefault("default_value", ""),
		BoolDefault("required", false),
		StringDefault("inferred_type", ""),
	},
	Relationships: []Relationship{
		{Name: "has_field", Target: "modules", EdgeLabel: "HAS_FIELD"},
	},
}

var Specs = Relation{
	Name: "specs",
	KeyFields: []Field{
		StringRequired("project"),
		StringRequired("module"),
		StringRequired("name"),
		IntRequired("arity"),
	},
	ValueFields: []Field{
		StringDefault("kind", ""),
		IntDefault("line", 0),
		StringDefault("inputs_string", ""),
		StringDefault("return_string", ""),
		StringDefault("full", ""),
	},
	Relationships: []Relationship{
		{Name: "defines", Target: "modules", EdgeLabel: "DEFINES"},
	},
}

var Types = Relation{
	Name: "types",
	KeyFields: []Field{
		StringRequired("project"),
		StringRequired("module"),
		StringRequired("name"),
	},
	ValueFields: []Field{
		StringDefault("kind", ""),
		StringDefault("params", ""),
		IntDefault("line", 0),
		StringDefault("definition", ""),
	},
	Relationships: []Relationship{
		{Name: "defines", Target: "modules", EdgeLabel: "DEFINES"},
	},
}

// CoreRelations lists all seven relations that must exist for the store
// to be considered version-1 installed.
var CoreRelations = []Relation{
	Modules,
	Functions,
	FunctionLocations,
	Calls,
	StructFields,
	Specs,
	Types,
}
