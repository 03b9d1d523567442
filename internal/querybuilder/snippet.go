package querybuilder

import (
	"os"
	"strings"
)

// Snippet is a window of source lines around a result row's location.
type Snippet struct {
	File      string `json:"file"`
	StartLine int64  `json:"start_line"`
	EndLine   int64  `json:"end_line"`
	Text      string `json:"text"`
}

// ExtractSnippet reads the source window around line from file: the line
// itself plus contextLines lines on each side. Unreadable files and
// out-of-range lines yield ok=false; enrichment never fails a query.
func ExtractSnippet(file string, line, contextLines int64) (Snippet, bool) {
	if file == "" || line <= 0 {
		return Snippet{}, false
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return Snippet{}, false
	}
	lines := strings.Split(string(data), "\n")
	if line > int64(len(lines)) {
		return Snippet{}, false
	}

	start := line - contextLines
	if start < 1 {
		start = 1
	}
	end := line + contextLines
	if end > int64(len(lines)) {
		end = int64(len(lines))
	}
	return Snippet{
		File:      file,
		StartLine: start,
		EndLine:   end,
		Text:      strings.Join(lines[start-1:end], "\n"),
	}, true
}

// CallWithSnippet decorates a call edge with the source window around
// the call site.
type CallWithSnippet struct {
	Call
	Snippet *Snippet `json:"snippet,omitempty"`
}

// AttachSnippets decorates calls with source windows. Rows whose file
// cannot be read keep a nil snippet.
func AttachSnippets(calls []Call, contextLines int64) []CallWithSnippet {
	out := make([]CallWithSnippet, len(calls))
	for i, c := range calls {
		out[i] = CallWithSnippet{Call: c}
		if s, ok := ExtractSnippet(c.File, c.Line, contextLines); ok {
			out[i].Snippet = &s
		}
	}
	return out
}
