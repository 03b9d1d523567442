package datalog

import (
	"strconv"
	"strings"
)

// parseScript splits a compiled Datalog script into the mangle-parseable
// source (rule clauses ending in the `result(...)` head) and the trailing
// :order/:limit directives the query builders append as a textual
// convention (mangle itself has no such clauses).
func parseScript(script string) (source string, orderBy []string, limit int, err error) {
	var body []string
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, ":order "):
			fields := strings.Split(strings.TrimPrefix(trimmed, ":order "), ",")
			for _, f := range fields {
				orderBy = append(orderBy, strings.TrimSpace(f))
			}
		case strings.HasPrefix(trimmed, ":limit "):
			n, convErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(trimmed, ":limit ")))
			if convErr == nil {
				limit = n
			}
		default:
			body = append(body, line)
		}
	}
	return strings.Join(body, "\n"), orderBy, limit, nil
}
