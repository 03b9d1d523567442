package querycond

import (
	"regexp"

	"github.com/cortexdb/query-core/internal/cortexerr"
)

// ValidateRegexPatterns validates every non-nil pattern with the same
// regexp engine the backend itself uses internally, before any query
// runs. If useRegex is false this is always a no-op.
func ValidateRegexPatterns(useRegex bool, patterns ...*string) error {
	if !useRegex {
		return nil
	}
	for _, p := range patterns {
		if p == nil {
			continue
		}
		if err := ValidateRegexPattern(*p); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRegexPattern compiles a single pattern, returning an error of
// the form "Invalid regex pattern '<p>': <detail>" on failure.
func ValidateRegexPattern(pattern string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return &cortexerr.PatternError{Pattern: pattern, Detail: err.Error()}
	}
	return nil
}
