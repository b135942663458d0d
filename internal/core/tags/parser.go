// Package tags extracts tagged annotations ("TODO:", "@idea", ...) from source
// file text and decides which repository paths are scanned at all.
package tags

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Default context window around a matched line.
const (
	DefaultContextBefore = 4
	DefaultContextAfter  = 5
)

// minTextLen is the shortest remainder accepted as annotation text. Anything
// shorter falls back to the whole trimmed line.
const minTextLen = 3

var trailingBlockClose = regexp.MustCompile(`\s*\*/$`)

// Matcher identifies a tag by one or more literal substrings.
type Matcher struct {
	Name  string   `json:"name"  yaml:"name"`
	Match []string `json:"match" yaml:"match"`
}

// Config controls how a single file is parsed.
type Config struct {
	Tags   []Matcher `json:"tags"   yaml:"tags"`
	Ignore []string  `json:"ignore" yaml:"ignore"`

	// ContextBefore and ContextAfter size the context window. Zero values
	// fall back to DefaultContextBefore and DefaultContextAfter.
	ContextBefore int `json:"-" yaml:"-"`
	ContextAfter  int `json:"-" yaml:"-"`
}

// ParsedTask is one annotation found in a file.
type ParsedTask struct {
	ID      string   `json:"id"`
	File    string   `json:"file"`
	Line    int      `json:"line"` // 1-indexed
	Tag     string   `json:"tag"`
	Text    string   `json:"text"`
	Context []string `json:"context"`
}

// LineMatch records where a tag matched within a line.
type LineMatch struct {
	Tag    string
	Index  int // 0-based byte offset of the match
	Length int
}

// MatchLine returns the first tag whose match string appears literally in
// line. Tags are tried in order and, within a tag, match strings are tried in
// order. Empty match strings are skipped.
func MatchLine(line string, tags []Matcher) (LineMatch, bool) {
	for _, tag := range tags {
		for _, m := range tag.Match {
			if m == "" {
				continue
			}
			if idx := strings.Index(line, m); idx >= 0 {
				return LineMatch{Tag: tag.Name, Index: idx, Length: len(m)}, true
			}
		}
	}
	return LineMatch{}, false
}

// ExtractText returns the annotation text following a match. When fewer than
// three characters follow the match the whole trimmed line is used instead.
// A trailing block comment closer is always stripped.
func ExtractText(line string, index, length int) string {
	candidate := ""
	if end := index + length; end >= 0 && end <= len(line) {
		candidate = strings.TrimSpace(line[end:])
	}
	if len(candidate) < minTextLen {
		candidate = strings.TrimSpace(line)
	}
	candidate = trailingBlockClose.ReplaceAllString(candidate, "")
	return strings.TrimSpace(candidate)
}

// ExtractContext returns lines[idx-before .. idx+after] clamped to the slice
// bounds. The window shrinks at file boundaries rather than padding.
func ExtractContext(lines []string, idx, before, after int) []string {
	if len(lines) == 0 || idx < 0 || idx >= len(lines) {
		return []string{}
	}
	start := max(0, idx-before)
	end := min(len(lines)-1, idx+after)

	out := make([]string, end-start+1)
	copy(out, lines[start:end+1])
	return out
}

// ParseFileContent returns every annotation in content, in line order.
func ParseFileContent(content, path string, cfg Config) []ParsedTask {
	before, after := cfg.ContextBefore, cfg.ContextAfter
	if before <= 0 {
		before = DefaultContextBefore
	}
	if after <= 0 {
		after = DefaultContextAfter
	}

	// Context keeps raw lines. Only matching and text see the line without
	// a CRLF carriage return.
	lines := strings.Split(content, "\n")
	tasks := make([]ParsedTask, 0)

	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		m, ok := MatchLine(line, cfg.Tags)
		if !ok {
			continue
		}

		tasks = append(tasks, ParsedTask{
			ID:      uuid.NewString(),
			File:    path,
			Line:    i + 1,
			Tag:     m.Tag,
			Text:    ExtractText(line, m.Index, m.Length),
			Context: ExtractContext(lines, i, before, after),
		})
	}

	return tasks
}

// splitLines splits on "\n" and drops the carriage return of CRLF endings.
// It is used for .gitignore rules, where a trailing "\r" would become part of
// the pattern.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
