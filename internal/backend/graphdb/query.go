package graphdb

import (
	"context"
	"database/sql"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cortexdb/query-core/internal/cortexerr"
	"github.com/cortexdb/query-core/internal/value"
)

var returnClauseRe = regexp.MustCompile(`(?is)RETURN\s+(.+?)(?:\s+ORDER\s+BY|\s+LIMIT|$)`)

// parseReturnColumns extracts the output column names from a Cypher
// script's RETURN clause in literal order, taking the alias after "AS"
// when present. The wrapper's AS (...) list maps positionally onto the
// RETURN items, so it must stay in this order; the alphabetical
// reordering this backend exposes happens after scanning.
func parseReturnColumns(script string) []string {
	m := returnClauseRe.FindStringSubmatch(script)
	if m == nil {
		return nil
	}
	parts := splitTopLevelCommas(m[1])
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if idx := strings.LastIndex(strings.ToUpper(p), " AS "); idx >= 0 {
			cols = append(cols, strings.TrimSpace(p[idx+4:]))
			continue
		}
		// bare expression: take the trailing identifier, e.g. "n.project" -> "project"
		if dot := strings.LastIndex(p, "."); dot >= 0 {
			cols = append(cols, strings.TrimSpace(p[dot+1:]))
			continue
		}
		cols = append(cols, p)
	}
	return cols
}

func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// ExecuteQuery runs a Cypher script through the cypher(...) wrapper and
// decodes the agtype columns into a value.ResultSet. Headers come back
// alphabetized — this backend reorders select-list columns, which is why
// decoders resolve columns by name, never position.
func (b *Backend) ExecuteQuery(ctx context.Context, script string, params map[string]value.Value) (value.ResultSet, error) {
	inlined := inlineParams(script, params)
	columns := parseReturnColumns(inlined)

	// Statement-only scripts (DETACH DELETE and friends) return no
	// columns, but the wrapper's output schema cannot be empty.
	scanCols := columns
	if len(scanCols) == 0 {
		scanCols = []string{"v"}
	}
	wrapped := wrapCypher(inlined, scanCols)

	rows, err := b.db.QueryContext(ctx, wrapped)
	if err != nil {
		return value.ResultSet{}, &cortexerr.QueryFailedError{Feature: "Graph", Message: err.Error()}
	}
	defer rows.Close()

	// Alphabetize the headers and build the permutation from scan
	// position to output position.
	sortedCols := append([]string(nil), columns...)
	sort.Strings(sortedCols)
	outIndex := make([]int, len(columns))
	for scanPos, name := range columns {
		for outPos, sortedName := range sortedCols {
			if sortedName == name {
				outIndex[scanPos] = outPos
				break
			}
		}
	}

	result := value.ResultSet{Headers: value.Header(sortedCols)}
	scanBuf := make([]sql.NullString, len(scanCols))
	scanPtrs := make([]interface{}, len(scanCols))
	for i := range scanBuf {
		scanPtrs[i] = &scanBuf[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanPtrs...); err != nil {
			return value.ResultSet{}, &cortexerr.QueryFailedError{Feature: "Graph", Message: err.Error()}
		}
		if len(columns) == 0 {
			continue
		}
		row := make(value.Row, len(columns))
		for i := range columns {
			row[outIndex[i]] = decodeAgtype(scanBuf[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return value.ResultSet{}, &cortexerr.QueryFailedError{Feature: "Graph", Message: err.Error()}
	}
	return result, nil
}

// inlineParams substitutes $name references with escaped Cypher literals,
// since the graph driver's parameter bridge cannot faithfully represent
// the tagged value type system.
func inlineParams(script string, params map[string]value.Value) string {
	out := script
	for name, v := range params {
		out = strings.ReplaceAll(out, "$"+name, cypherLiteral(v))
	}
	return out
}

func cypherLiteral(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return `"` + escapeCypherString(s) + `"`
	case value.KindInt:
		i, _ := v.AsInt64()
		return strconv.FormatInt(i, 10)
	case value.KindFloat:
		f, _ := v.AsFloat64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case value.KindBool:
		if v.AsBoolOr(false) {
			return "true"
		}
		return "false"
	case value.KindNull:
		return "null"
	case value.KindArray:
		arr, _ := v.AsArray()
		parts := make([]string, len(arr))
		for i, item := range arr {
			parts[i] = cypherLiteral(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return `"` + escapeCypherString(v.String()) + `"`
	}
}

// decodeAgtype converts a single agtype-rendered column (always returned
// as text by the driver) into a Value. agtype strings are quoted, numbers
// and booleans are bare, and SQL NULL maps to KindNull.
func decodeAgtype(s sql.NullString) value.Value {
	if !s.Valid {
		return value.Null()
	}
	text := strings.TrimSpace(s.String)
	if text == "" || text == "null" {
		return value.Null()
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		return value.String(text[1 : len(text)-1])
	}
	if text == "true" {
		return value.Bool(true)
	}
	if text == "false" {
		return value.Bool(false)
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return value.Float(f)
	}
	return value.String(text)
}
