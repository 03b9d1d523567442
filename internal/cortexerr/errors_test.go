package cortexerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatternErrorFormat(t *testing.T) {
	err := &PatternError{Pattern: "[invalid", Detail: "missing closing ]"}
	assert.Equal(t, "Invalid regex pattern '[invalid': missing closing ]", err.Error())
}

func TestQueryFailedErrorNamesFeature(t *testing.T) {
	err := &QueryFailedError{Feature: "Calls", Message: "parse error near line 3"}
	assert.Contains(t, err.Error(), "CallsError")
	assert.Contains(t, err.Error(), "parse error near line 3")
}

func TestImportErrorKinds(t *testing.T) {
	cause := errors.New("disk gone")
	err := &ImportError{Kind: FileReadFailed, Detail: "/tmp/graph.json", Cause: cause}
	assert.Contains(t, err.Error(), "ImportError::FileReadFailed")
	assert.Contains(t, err.Error(), "/tmp/graph.json")
	assert.ErrorIs(t, err, cause)

	var importErr *ImportError
	assert.ErrorAs(t, error(err), &importErr)
}

func TestImportErrorKindStrings(t *testing.T) {
	cases := map[ImportErrorKind]string{
		FileReadFailed:       "FileReadFailed",
		JsonParseFailed:      "JsonParseFailed",
		SchemaCreationFailed: "SchemaCreationFailed",
		ClearFailed:          "ClearFailed",
		ImportFailed:         "ImportFailed",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestLimitRangeError(t *testing.T) {
	err := &LimitRangeError{Limit: 1001}
	assert.Contains(t, err.Error(), "1001")
	assert.Contains(t, err.Error(), "[1,1000]")
}
