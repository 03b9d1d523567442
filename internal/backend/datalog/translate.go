package datalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cortexdb/query-core/internal/schema"
)

// translateScript lowers a query-dialect script (the `?[...] := *rel{...}`
// form the query builders emit) into mangle source. The lowering rules:
//
//   - `*rel{f1, f2: alias}` destructures positionally against the relation's
//     schema field order; unmentioned fields become wildcards.
//   - `name[v1, v2]` references another rule in the same script.
//   - equality conditions (`x == y`, `x = 1`) are eliminated by substitution
//     rather than emitted, the classic Datalog lowering.
//   - comparisons stay infix; arithmetic becomes fn:plus/fn:minus chains.
//   - starts_with / str_includes / regex_matches become the engine's
//     :string:* builtin predicates.
//   - `count(x)` in a rule head becomes a group-by pipeline.
//
// The returned columns are the result rule's projection in literal source
// order; ExecuteQuery uses them as the ResultSet headers (the Datalog
// backend never alphabetizes).
type translated struct {
	Source  string
	Columns []string
}

type dialectRule struct {
	name string
	args []string // raw dialect identifiers, literal source order
	body []string // raw body items, top-level comma split
}

var relationFields = func() map[string][]string {
	m := make(map[string][]string, len(schema.CoreRelations))
	for _, rel := range schema.CoreRelations {
		m[rel.Name] = rel.FieldNames()
	}
	return m
}()

func translateScript(script string) (translated, error) {
	rules, err := splitRules(script)
	if err != nil {
		return translated{}, err
	}
	if len(rules) == 0 {
		return translated{}, fmt.Errorf("script has no rules")
	}

	var b strings.Builder
	var columns []string
	declared := map[string]bool{}

	for _, rule := range rules {
		lowered, cols, err := lowerRule(rule)
		if err != nil {
			return translated{}, err
		}
		if rule.name == "result" && columns == nil {
			columns = cols
		}
		if !declared[rule.name] {
			declared[rule.name] = true
			b.WriteString("Decl ")
			b.WriteString(rule.name)
			b.WriteString("(")
			for i := range rule.args {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(declVar(rule.args[i], i))
			}
			b.WriteString(").\n")
		}
		b.WriteString(lowered)
		b.WriteString("\n")
	}

	if columns == nil {
		return translated{}, fmt.Errorf("script has no result rule")
	}
	return translated{Source: b.String(), Columns: columns}, nil
}

// splitRules scans the dialect script into rules. A rule begins on a line
// containing `:=` with a `name[...]` or `?[...]` head and extends until the
// next head line. Comment lines and blank lines are dropped.
func splitRules(script string) ([]dialectRule, error) {
	var flat []string
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		flat = append(flat, trimmed)
	}

	var ruleTexts []string
	var current strings.Builder
	for _, line := range flat {
		if isHeadLine(line) && current.Len() > 0 {
			ruleTexts = append(ruleTexts, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		ruleTexts = append(ruleTexts, current.String())
	}

	var rules []dialectRule
	for _, text := range ruleTexts {
		rule, err := parseRule(text)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func isHeadLine(line string) bool {
	idx := strings.Index(line, ":=")
	if idx < 0 {
		return false
	}
	head := strings.TrimSpace(line[:idx])
	return strings.HasSuffix(head, "]") &&
		(strings.HasPrefix(head, "?[") || strings.IndexByte(head, '[') > 0)
}

func parseRule(text string) (dialectRule, error) {
	idx := strings.Index(text, ":=")
	if idx < 0 {
		return dialectRule{}, fmt.Errorf("rule has no := separator: %s", text)
	}
	head := strings.TrimSpace(text[:idx])
	body := strings.TrimSpace(text[idx+2:])

	open := strings.IndexByte(head, '[')
	if open < 0 || !strings.HasSuffix(head, "]") {
		return dialectRule{}, fmt.Errorf("malformed rule head: %s", head)
	}
	name := strings.TrimSpace(head[:open])
	if name == "?" || name == "" {
		name = "result"
	}
	args := splitTopLevel(head[open+1 : len(head)-1])
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return dialectRule{name: name, args: args, body: splitTopLevel(body)}, nil
}

// splitTopLevel splits on commas not nested inside (), [], {}, or quotes.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inQuote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

// lowerRule renders one dialect rule as mangle source, returning the head's
// column names in literal order.
func lowerRule(rule dialectRule) (string, []string, error) {
	type atom struct {
		negated bool
		name    string
		terms   []string
	}
	var atoms []atom
	var conds []string
	subst := map[string]string{}
	var groupCount string // head variable receiving fn:count()

	addSubst := func(from, to string) {
		for k, v := range subst {
			if v == from {
				subst[k] = to
			}
		}
		subst[from] = to
	}

	for _, item := range rule.body {
		neg := false
		if strings.HasPrefix(item, "not ") {
			neg = true
			item = strings.TrimSpace(strings.TrimPrefix(item, "not "))
		}
		switch {
		case strings.HasPrefix(item, "*"):
			name, terms, err := lowerDestructure(item)
			if err != nil {
				return "", nil, err
			}
			atoms = append(atoms, atom{negated: neg, name: name, terms: terms})
		case isRuleAtom(item):
			open := strings.IndexByte(item, '[')
			name := strings.TrimSpace(item[:open])
			args := splitTopLevel(item[open+1 : len(item)-1])
			terms := make([]string, len(args))
			for i, a := range args {
				terms[i] = mangleTerm(strings.TrimSpace(a))
			}
			atoms = append(atoms, atom{negated: neg, name: name, terms: terms})
		default:
			cond, eq, err := lowerCondition(item)
			if err != nil {
				return "", nil, err
			}
			if eq != nil {
				addSubst(eq[0], eq[1])
			} else if cond != "" {
				if neg {
					cond = "!" + cond
				}
				conds = append(conds, cond)
			}
		}
	}

	apply := func(term string) string {
		seen := 0
		for {
			next, ok := subst[term]
			if !ok || seen > len(subst) {
				return term
			}
			term = next
			seen++
		}
	}

	var headTerms []string
	var columns []string
	groupKeys := []string{}
	for _, arg := range rule.args {
		if fn, inner, ok := aggregateArg(arg); ok {
			if fn != "count" {
				return "", nil, fmt.Errorf("unsupported aggregate %s", fn)
			}
			groupCount = "Cnt"
			headTerms = append(headTerms, groupCount)
			columns = append(columns, inner)
			continue
		}
		t := apply(mangleTerm(arg))
		headTerms = append(headTerms, t)
		columns = append(columns, arg)
		groupKeys = append(groupKeys, t)
	}

	var b strings.Builder
	b.WriteString(rule.name)
	b.WriteString("(")
	b.WriteString(strings.Join(headTerms, ", "))
	b.WriteString(") :- ")
	first := true
	writeItem := func(s string) {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(s)
	}
	for _, a := range atoms {
		terms := make([]string, len(a.terms))
		for i, t := range a.terms {
			terms[i] = apply(t)
		}
		prefix := ""
		if a.negated {
			prefix = "!"
		}
		writeItem(prefix + a.name + "(" + strings.Join(terms, ", ") + ")")
	}
	for _, c := range conds {
		writeItem(applyToCondition(c, apply))
	}
	if groupCount != "" {
		b.WriteString(" |> do fn:group_by(")
		b.WriteString(strings.Join(groupKeys, ", "))
		b.WriteString("), let ")
		b.WriteString(groupCount)
		b.WriteString(" = fn:count()")
	}
	b.WriteString(".")
	return b.String(), columns, nil
}

func isRuleAtom(item string) bool {
	open := strings.IndexByte(item, '[')
	if open <= 0 || !strings.HasSuffix(item, "]") {
		return false
	}
	name := item[:open]
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func aggregateArg(arg string) (fn, inner string, ok bool) {
	open := strings.IndexByte(arg, '(')
	if open <= 0 || !strings.HasSuffix(arg, ")") {
		return "", "", false
	}
	return arg[:open], arg[open+1 : len(arg)-1], true
}

// lowerDestructure turns `*rel{f1, f2: alias}` into a positional atom over
// the relation's full field list.
func lowerDestructure(item string) (string, []string, error) {
	open := strings.IndexByte(item, '{')
	if open < 0 || !strings.HasSuffix(item, "}") {
		return "", nil, fmt.Errorf("malformed destructure: %s", item)
	}
	relName := strings.TrimSpace(item[1:open])
	fields, ok := relationFields[relName]
	if !ok {
		return "", nil, fmt.Errorf("unknown relation %s", relName)
	}

	bound := map[string]string{}
	for _, part := range splitTopLevel(item[open+1 : len(item)-1]) {
		if colon := strings.IndexByte(part, ':'); colon >= 0 {
			field := strings.TrimSpace(part[:colon])
			bound[field] = mangleTerm(strings.TrimSpace(part[colon+1:]))
		} else {
			field := strings.TrimSpace(part)
			bound[field] = mangleVar(field)
		}
	}

	terms := make([]string, len(fields))
	for i, f := range fields {
		if t, ok := bound[f]; ok {
			terms[i] = t
		} else {
			terms[i] = "_"
		}
	}
	return relName, terms, nil
}

// lowerCondition classifies one body condition. Equalities come back as a
// two-element substitution pair instead of text.
func lowerCondition(item string) (cond string, eq []string, err error) {
	if item == "true" {
		return "", nil, nil
	}
	for _, call := range []struct{ dialect, builtin string }{
		{"starts_with", ":string:starts_with"},
		{"str_includes", ":string:contains"},
		{"regex_matches", ":string:matches"},
	} {
		prefix := call.dialect + "("
		if strings.HasPrefix(item, prefix) && strings.HasSuffix(item, ")") {
			args := splitTopLevel(item[len(prefix) : len(item)-1])
			if len(args) != 2 {
				return "", nil, fmt.Errorf("%s expects 2 arguments: %s", call.dialect, item)
			}
			return call.builtin + "(" + mangleTerm(args[0]) + ", " + mangleTerm(args[1]) + ")", nil, nil
		}
	}
	if op, l, r, ok := splitComparison(item); ok {
		left := mangleTerm(l)
		switch op {
		case "==":
			return "", []string{left, mangleTerm(r)}, nil
		case "=":
			if isArithmetic(r) {
				return left + " = " + lowerArithmetic(r), nil, nil
			}
			return "", []string{left, mangleTerm(r)}, nil
		default:
			return left + " " + op + " " + mangleTerm(r), nil, nil
		}
	}
	return "", nil, fmt.Errorf("unsupported condition: %s", item)
}

func splitComparison(item string) (op, left, right string, ok bool) {
	for _, candidate := range []string{"==", "!=", "<=", ">=", "<", ">", "="} {
		if idx := strings.Index(item, candidate); idx > 0 {
			return candidate, strings.TrimSpace(item[:idx]), strings.TrimSpace(item[idx+len(candidate):]), true
		}
	}
	return "", "", "", false
}

func isArithmetic(expr string) bool {
	depth := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '+', '-':
			if depth == 0 && i > 0 {
				return true
			}
		}
	}
	return false
}

// lowerArithmetic rewrites a left-associative +/- chain as nested
// fn:plus/fn:minus applications.
func lowerArithmetic(expr string) string {
	var terms []string
	var ops []byte
	depth := 0
	start := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '+', '-':
			if depth == 0 && i > start {
				terms = append(terms, strings.TrimSpace(expr[start:i]))
				ops = append(ops, expr[i])
				start = i + 1
			}
		}
	}
	terms = append(terms, strings.TrimSpace(expr[start:]))

	out := mangleTerm(terms[0])
	for i, op := range ops {
		fn := "fn:plus"
		if op == '-' {
			fn = "fn:minus"
		}
		out = fn + "(" + out + ", " + mangleTerm(terms[i+1]) + ")"
	}
	return out
}

func applyToCondition(cond string, apply func(string) string) string {
	// Conditions were already rendered with mangle terms; re-apply the
	// substitution to each identifier token.
	var b strings.Builder
	i := 0
	for i < len(cond) {
		c := cond[i]
		if c == '"' {
			end := i + 1
			for end < len(cond) && cond[end] != '"' {
				end++
			}
			b.WriteString(cond[i : end+1])
			i = end + 1
			continue
		}
		if isIdentStart(c) {
			end := i
			for end < len(cond) && isIdentByte(cond[end]) {
				end++
			}
			b.WriteString(apply(cond[i:end]))
			i = end
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_'
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == ':'
}

// mangleTerm renders a dialect term: literals pass through (normalized to
// double quotes), identifiers become capitalized mangle variables.
func mangleTerm(t string) string {
	t = strings.TrimSpace(t)
	if t == "" || t == "_" {
		return "_"
	}
	if t[0] == '"' {
		return t
	}
	if t[0] == '\'' && strings.HasSuffix(t, "'") {
		return strconv.Quote(t[1 : len(t)-1])
	}
	if _, err := strconv.ParseInt(t, 10, 64); err == nil {
		return t
	}
	return mangleVar(t)
}

// declVar names a Decl argument: aggregate head args fall back to a
// positional name so the Decl stays well-formed.
func declVar(arg string, pos int) string {
	if _, inner, ok := aggregateArg(arg); ok {
		arg = inner
		if arg == "" {
			return fmt.Sprintf("Agg%d", pos)
		}
		return mangleVar(arg) + "Agg"
	}
	return mangleVar(arg)
}

func mangleVar(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
