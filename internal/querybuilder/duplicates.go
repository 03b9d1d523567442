package querybuilder

import (
	"context"
	"fmt"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/decode"
	"github.com/cortexdb/query-core/internal/querycond"
	"github.com/cortexdb/query-core/internal/value"
)

// DuplicatesQueryBuilder finds functions sharing a clause hash. UseExact
// selects the raw source hash instead of the structural AST hash. The
// non-regex module filter is a substring match, not equality.
type DuplicatesQueryBuilder struct {
	Project          string
	ModulePattern    *string
	UseRegex         bool
	UseExact         bool
	ExcludeGenerated bool
}

func (b DuplicatesQueryBuilder) hashField() string {
	if b.UseExact {
		return "source_sha"
	}
	return "ast_sha"
}

func (b DuplicatesQueryBuilder) Compile(dialect Dialect) (string, error) {
	if err := querycond.ValidateRegexPatterns(b.UseRegex, b.ModulePattern); err != nil {
		return "", err
	}
	if dialect == DialectGraph {
		return b.compileGraph(), nil
	}

	hashField := b.hashField()

	moduleFilter := ""
	if b.ModulePattern != nil {
		if b.UseRegex {
			moduleFilter = ",\n    regex_matches(module, $module_pattern)"
		} else {
			moduleFilter = ",\n    str_includes(module, $module_pattern)"
		}
	}
	generatedFilter := ""
	if b.ExcludeGenerated {
		generatedFilter = ",\n    generated_by == \"\""
	}

	return fmt.Sprintf(`# Count distinct functions per non-empty hash
hash_counts[%[1]s, count(module)] :=
    *function_locations{project, module, name, arity, %[1]s},
    project == $project,
    %[1]s != ""

# All functions whose hash appears more than once
?[%[1]s, module, name, arity, line, file, generated_by] :=
    *function_locations{project, module, name, arity, line, file, generated_by, %[1]s},
    hash_counts[%[1]s, cnt],
    cnt > 1,
    project == $project%[2]s%[3]s

:order %[1]s, module, name, arity`, hashField, moduleFilter, generatedFilter), nil
}

func (b DuplicatesQueryBuilder) compileGraph() string {
	hashField := b.hashField()

	match := "CONTAINS"
	if b.UseRegex {
		match = "=~"
	}
	whereFilter := ""
	if b.ModulePattern != nil {
		whereFilter = fmt.Sprintf("\n  AND loc2.module %s $module_pattern", match)
	}
	if b.ExcludeGenerated {
		whereFilter += "\n  AND loc2.generated_by = ''"
	}

	return fmt.Sprintf(`MATCH (loc:FunctionLocation)
WHERE loc.project = $project
  AND loc.%[1]s <> ''
WITH loc.%[1]s AS hash, count(loc) AS cnt
WHERE cnt > 1
MATCH (loc2:FunctionLocation)
WHERE loc2.project = $project
  AND loc2.%[1]s = hash%[2]s
RETURN loc2.%[1]s AS hash, loc2.module AS module, loc2.name AS name, loc2.arity AS arity, loc2.line AS line, loc2.file AS file, loc2.generated_by AS generated_by
ORDER BY hash, loc2.module, loc2.name, loc2.arity`, hashField, whereFilter)
}

func (b DuplicatesQueryBuilder) Parameters() map[string]value.Value {
	params := map[string]value.Value{
		"project": value.String(b.Project),
	}
	if b.ModulePattern != nil {
		params["module_pattern"] = value.String(*b.ModulePattern)
	}
	return params
}

// FindDuplicates compiles and runs a duplicates query. The Datalog
// dialect's result column for the hash is named after the selected hash
// field; the decoder resolves whichever is present.
func FindDuplicates(ctx context.Context, be backend.Backend, b DuplicatesQueryBuilder) ([]DuplicateFunction, error) {
	script, err := b.Compile(be.Dialect())
	if err != nil {
		return nil, err
	}
	rs, err := be.ExecuteQuery(ctx, script, b.Parameters())
	if err != nil {
		return nil, &cortexerr.QueryFailedError{Feature: "Duplicates", Message: err.Error()}
	}

	hashColumn := "hash"
	if _, ok := rs.ColumnIndex(hashColumn); !ok {
		hashColumn = b.hashField()
	}
	layout, err := decode.NewRowLayout(rs, hashColumn, "module", "name", "arity", "line", "file", "generated_by")
	if err != nil {
		return nil, err
	}

	var out []DuplicateFunction
	for _, row := range rs.Rows {
		hash, ok := layout.String(row, hashColumn)
		if !ok {
			continue
		}
		module, ok := layout.String(row, "module")
		if !ok {
			continue
		}
		name, ok := layout.String(row, "name")
		if !ok {
			continue
		}
		out = append(out, DuplicateFunction{
			Hash:        hash,
			Module:      module,
			Name:        name,
			Arity:       layout.Int64Or(row, "arity", 0),
			Line:        layout.Int64Or(row, "line", 0),
			File:        layout.StringOr(row, "file", ""),
			GeneratedBy: layout.StringOr(row, "generated_by", ""),
		})
	}
	return out, nil
}
