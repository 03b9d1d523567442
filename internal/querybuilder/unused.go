package querybuilder

import (
	"context"
	"fmt"
	"strings"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/decode"
	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/value"
)

// GeneratedPatterns lists the compiler-generated function name prefixes
// ExcludeGenerated drops.
var GeneratedPatterns = []string{
	"__struct__",
	"__using__",
	"__before_compile__",
	"__after_compile__",
	"__on_definition__",
	"__impl__",
	"__info__",
	"__protocol__",
	"__deriving__",
	"__changeset__",
	"__schema__",
	"__meta__",
}

// privateKinds and publicKinds drive the PrivateOnly/PublicOnly filters.
var (
	privateKinds = []string{"defp", "defmacrop"}
	publicKinds  = []string{"def", "defmacro"}
)

// UnusedQueryBuilder finds defined functions that never appear as a
// callee: defined minus called, with optional visibility and generated
// filters.
type UnusedQueryBuilder struct {
	Project          string
	ModulePattern    *string
	UseRegex         bool
	PrivateOnly      bool
	PublicOnly       bool
	ExcludeGenerated bool
	Limit            int
}

func (b UnusedQueryBuilder) kinds() []string {
	switch {
	case b.PrivateOnly:
		return privateKinds
	case b.PublicOnly:
		return publicKinds
	default:
		return nil
	}
}

func (b UnusedQueryBuilder) Compile(dialect Dialect) (string, error) {
	if b.Limit < 0 || b.Limit > 1000 {
		return "", &cortexerr.LimitRangeError{Limit: b.Limit}
	}
	if err := querycond.ValidateRegexPatterns(b.UseRegex, b.ModulePattern); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	moduleFilter := ""
	if b.ModulePattern != nil {
		if b.UseRegex {
			moduleFilter = ",\n    regex_matches(module, $module_pattern)"
		} else {
			moduleFilter = ",\n    str_includes(module, $module_pattern)"
		}
	}

	// The kind filter becomes one result rule per kind; the union of the
	// rules is the filtered set.
	kinds := b.kinds()
	var resultRules []string
	if len(kinds) == 0 {
		resultRules = append(resultRules, fmt.Sprintf(`?[module, name, arity, kind, file, line] :=
    defined[module, name, arity, kind, file, line],
    not called[module, name, arity]%s`, moduleFilter))
	} else {
		for _, k := range kinds {
			resultRules = append(resultRules, fmt.Sprintf(`?[module, name, arity, kind, file, line] :=
    defined[module, name, arity, kind, file, line],
    not called[module, name, arity],
    kind == "%s"%s`, k, moduleFilter))
		}
	}

	return fmt.Sprintf(`# Every defined function clause
defined[module, name, arity, kind, file, line] :=
    *function_locations{project, module, name, arity, kind, file, line},
    project == $project

# Every distinct callee triple
called[callee_module, callee_function, callee_arity] :=
    *calls{project, callee_module, callee_function, callee_arity},
    project == $project

# Defined minus called
%s

:order module, name, arity
:limit %d`, strings.Join(resultRules, "\n\n"), b.Limit), nil
}

func (b UnusedQueryBuilder) compileGraph() string {
	match := "="
	if b.UseRegex {
		match = "=~"
	}
	moduleFilter := ""
	if b.ModulePattern != nil {
		moduleFilter = fmt.Sprintf("\n  AND loc.module %s $module_pattern", match)
	}
	kindFilter := ""
	if kinds := b.kinds(); len(kinds) > 0 {
		var parts []string
		for _, k := range kinds {
			parts = append(parts, "loc.kind = '"+k+"'")
		}
		kindFilter = "\n  AND (" + strings.Join(parts, " OR ") + ")"
	}

	return fmt.Sprintf(`MATCH (loc:FunctionLocation)
WHERE loc.project = $project%s%s
  AND NOT EXISTS {
    MATCH (c:Call)
    WHERE c.project = $project
      AND c.callee_module = loc.module
      AND c.callee_function = loc.name
      AND c.callee_arity = loc.arity
  }
RETURN loc.module AS module, loc.name AS name, loc.arity AS arity, loc.kind AS kind, loc.file AS file, loc.line AS line
ORDER BY module, name, arity
LIMIT %d`, moduleFilter, kindFilter, b.Limit)
}

func (b UnusedQueryBuilder) Parameters() map[string]value.Value {
	params := map[string]value.Value{
		"project": value.String(b.Project),
	}
	if b.ModulePattern != nil {
		params["module_pattern"] = value.String(*b.ModulePattern)
	}
	return params
}

// IsGeneratedName reports whether a function name begins with any of the
// compiler-generated prefixes.
func IsGeneratedName(name string) bool {
	for _, p := range GeneratedPatterns {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// FindUnused compiles and runs an unused-functions query. Limit 0 returns
// an empty result without touching the backend. The generated-name filter
// is applied here rather than in either dialect: neither engine has a
// prefix-list primitive, and the list is fixed.
func FindUnused(ctx context.Context, be backend.Backend, b UnusedQueryBuilder) ([]UnusedFunction, error) {
	if b.Limit == 0 {
		return []UnusedFunction{}, nil
	}
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Unused", Message: err.Error()}
	}

	layout, err := decode.NewRowLayout(rs, "module", "name", "arity", "kind", "file", "line")
	if err != nil {
		return nil, err
	}
	var out []UnusedFunction
	for _, row := range rs.Rows {
		module, ok := layout.String(row, "module")
		if !ok {
			continue
		}
		name, ok := layout.String(row, "name")
		if !ok {
			continue
		}
		if b.ExcludeGenerated && IsGeneratedName(name) {
			continue
		}
		out = append(out, UnusedFunction{
			Module: module,
			Name:   name,
			Arity:  layout.Int64Or(row, "arity", 0),
			Kind:   layout.StringOr(row, "kind", ""),
			File:   layout.StringOr(row, "file", ""),
			Line:   layout.Int64Or(row, "line", 0),
		})
	}
	return out, nil
}
