package tags

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// ShouldIgnorePath reports whether any pattern, treated as a regular
// expression, matches anywhere in path. A pattern that does not compile is
// matched as a literal substring instead.
func ShouldIgnorePath(path string, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		m, _ := compilePattern(p)
		if m.match(path) {
			return true
		}
	}
	return false
}

// pathPattern is one compiled ignore pattern. literal is set only when the
// pattern is not a valid regular expression.
type pathPattern struct {
	re      *regexp.Regexp
	literal string
}

// compilePattern compiles p as a regular expression. On failure it returns a
// literal substring matcher together with the compile error.
func compilePattern(p string) (pathPattern, error) {
	re, err := regexp.Compile(p)
	if err != nil {
		return pathPattern{literal: p}, err
	}
	return pathPattern{re: re}, nil
}

func (m pathPattern) match(path string) bool {
	if m.re != nil {
		return m.re.MatchString(path)
	}
	return m.literal != "" && strings.Contains(path, m.literal)
}

// Filter is a precompiled path filter combining regex ignore patterns, glob
// patterns and optional .gitignore rules from the scanned repository.
type Filter struct {
	patterns  []pathPattern
	globs     []string
	gitignore *ignore.GitIgnore
}

// NewFilter compiles the regex patterns and validates the globs.
func NewFilter(patterns, globs []string) (*Filter, error) {
	f := &Filter{}

	for _, p := range patterns {
		if p == "" {
			continue
		}
		m, err := compilePattern(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, m)
	}

	for _, g := range globs {
		if g == "" {
			continue
		}
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid ignore glob %q", g)
		}
		f.globs = append(f.globs, g)
	}

	return f, nil
}

// WithGitignore adds the rules of a .gitignore file to the filter.
func (f *Filter) WithGitignore(content string) *Filter {
	lines := splitLines(content)
	f.gitignore = ignore.CompileIgnoreLines(lines...)
	return f
}

// Ignored reports whether path should be skipped.
func (f *Filter) Ignored(path string) bool {
	if f == nil {
		return false
	}

	for _, m := range f.patterns {
		if m.match(path) {
			return true
		}
	}

	for _, g := range f.globs {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
	}

	if f.gitignore != nil && f.gitignore.MatchesPath(path) {
		return true
	}

	return false
}
