package querycond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegexPatternsSkipsWhenNotRegex(t *testing.T) {
	bad := "[invalid"
	err := ValidateRegexPatterns(false, &bad)
	assert.NoError(t, err)
}

func TestValidateRegexPatternsRejectsInvalid(t *testing.T) {
	bad := "[invalid"
	err := ValidateRegexPatterns(true, &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid regex pattern")
	assert.Contains(t, err.Error(), "[invalid")
}

func TestValidateRegexPatternsSkipsNilEntries(t *testing.T) {
	good := "^foo$"
	err := ValidateRegexPatterns(true, nil, &good)
	assert.NoError(t, err)
}

func TestConditionBuilderDatalog(t *testing.T) {
	cb := New("module", "module_pattern")
	assert.Equal(t, "module == $module_pattern", cb.Build(DialectDatalog, false))
	assert.Equal(t, "regex_matches(module, $module_pattern)", cb.Build(DialectDatalog, true))
}

func TestConditionBuilderGraph(t *testing.T) {
	cb := New("n.module", "module_pattern").WithLeadingComma()
	assert.Equal(t, ", n.module = $module_pattern", cb.Build(DialectGraph, false))
	assert.Equal(t, ", n.module =~ $module_pattern", cb.Build(DialectGraph, true))
}

func TestOptionalConditionBuilder(t *testing.T) {
	o := NewOptional("module", "module_pattern").WithRegex()
	o.WhenNone = ""
	assert.Equal(t, "", o.Build(DialectDatalog, false, true))
	assert.Equal(t, "regex_matches(module, $module_pattern)", o.Build(DialectDatalog, true, true))
	assert.Equal(t, "module == $module_pattern", o.Build(DialectDatalog, true, false))
}

func TestOptionalConditionBuilderWhenNoneFallback(t *testing.T) {
	o := NewOptional("kind", "kind_pattern")
	o.WhenNone = ", true"
	assert.Equal(t, ", true", o.Build(DialectDatalog, false, false))
}
