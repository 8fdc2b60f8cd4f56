// Package filter implements the path filters used to decide which source
// files and gcov data files participate in a report. Patterns are anchored
// regular expressions; relative patterns are matched against the path
// relative to the report root, absolute patterns against the absolute path.
package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Filter matches source paths against one user-supplied pattern.
type Filter struct {
	re       *regexp.Regexp
	absolute bool
}

// Build compiles a filter pattern. The pattern is anchored at the start,
// matching the original tool's re.match semantics.
func Build(pattern string) (*Filter, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
	}
	return &Filter{
		re:       re,
		absolute: filepath.IsAbs(pattern),
	}, nil
}

// MustBuild is Build for patterns known valid at compile time (tests,
// defaults).
func MustBuild(pattern string) *Filter {
	f, err := Build(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

// Matches reports whether the filter accepts the given path. abs is the
// normalized absolute path; rel is the same path relative to the report
// root. Both use forward slashes.
func (f *Filter) Matches(abs, rel string) bool {
	if f.absolute {
		return f.re.MatchString(abs)
	}
	return f.re.MatchString(rel)
}

// Set is an ordered group of filters combined with OR.
type Set []*Filter

// BuildSet compiles each pattern in order.
func BuildSet(patterns []string) (Set, error) {
	set := make(Set, 0, len(patterns))
	for _, p := range patterns {
		f, err := Build(p)
		if err != nil {
			return nil, err
		}
		set = append(set, f)
	}
	return set, nil
}

// AnyMatches reports whether any filter in the set accepts the path.
// An empty set matches nothing.
func (s Set) AnyMatches(abs, rel string) bool {
	for _, f := range s {
		if f.Matches(abs, rel) {
			return true
		}
	}
	return false
}

// Normalize converts a path to slash form for matching.
func Normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// RelativeTo returns path relative to root in slash form. When path is not
// under root the absolute slash form is returned, so absolute filters still
// get a chance to match it.
func RelativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return Normalize(path)
	}
	return filepath.ToSlash(rel)
}
