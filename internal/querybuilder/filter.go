package querybuilder

import (
	"github.com/gobwas/glob"
)

// CompileFileFilter validates and compiles the filter's glob patterns
// once, up front, the same way regex patterns are validated before any
// query runs.
func CompileFileFilter(f FileFilter) (*CompiledFileFilter, error) {
	c := &CompiledFileFilter{}
	for _, p := range f.Scope {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		c.scope = append(c.scope, g)
	}
	for _, p := range f.Exclude {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		c.exclude = append(c.exclude, g)
	}
	return c, nil
}

// CompiledFileFilter matches result rows by their file column. An empty
// scope admits every file; any matching exclude pattern rejects it.
type CompiledFileFilter struct {
	scope   []glob.Glob
	exclude []glob.Glob
}

// Matches reports whether a file passes the scope and exclude patterns.
func (c *CompiledFileFilter) Matches(file string) bool {
	if c == nil {
		return true
	}
	for _, g := range c.exclude {
		if g.Match(file) {
			return false
		}
	}
	if len(c.scope) == 0 {
		return true
	}
	for _, g := range c.scope {
		if g.Match(file) {
			return true
		}
	}
	return false
}

// FilterCalls drops calls whose file fails the filter.
func (c *CompiledFileFilter) FilterCalls(calls []Call) []Call {
	if c == nil || (len(c.scope) == 0 && len(c.exclude) == 0) {
		return calls
	}
	out := calls[:0]
	for _, call := range calls {
		if c.Matches(call.File) {
			out = append(out, call)
		}
	}
	return out
}

// FilterLocations drops locations whose file fails the filter.
func (c *CompiledFileFilter) FilterLocations(locs []Location) []Location {
	if c == nil || (len(c.scope) == 0 && len(c.exclude) == 0) {
		return locs
	}
	out := locs[:0]
	for _, loc := range locs {
		if c.Matches(loc.File) {
			out = append(out, loc)
		}
	}
	return out
}
