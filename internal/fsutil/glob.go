// Package fsutil matches workspace-relative paths against include/exclude globs.
package fsutil

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob is a validated slash-separated pattern. "*" and "?" stay within one
// path segment; "**" spans any number of segments, including none.
type Glob struct {
	pattern string
}

// Compile validates pattern.
func Compile(pattern string) (*Glob, error) {
	p := filepath.ToSlash(pattern)
	if !doublestar.ValidatePattern(p) {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, doublestar.ErrBadPattern)
	}
	return &Glob{pattern: p}, nil
}

func (g *Glob) String() string { return g.pattern }

// Match reports whether the relative path rel matches.
func (g *Glob) Match(rel string) bool {
	ok, err := doublestar.Match(g.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// Filter decides whether a relative path is selected by include and exclude
// pattern lists. Excludes win; an empty include list selects everything.
type Filter struct {
	include []*Glob
	exclude []*Glob
}

// NewFilter compiles include and exclude.
func NewFilter(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range include {
		g, err := Compile(p)
		if err != nil {
			return nil, err
		}
		f.include = append(f.include, g)
	}
	for _, p := range exclude {
		g, err := Compile(p)
		if err != nil {
			return nil, err
		}
		f.exclude = append(f.exclude, g)
	}
	return f, nil
}

// Match reports whether rel passes the filter.
func (f *Filter) Match(rel string) bool {
	for _, g := range f.exclude {
		if g.Match(rel) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, g := range f.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}
