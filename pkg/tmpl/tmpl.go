// Package tmpl renders user supplied Go templates for command output.
package tmpl

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"
)

// trunc shortens s to at most n runes, marking the cut with an ellipsis.
func trunc(n int, s string) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// pad right-pads s with spaces to n runes.
func pad(n int, s string) string {
	if l := len([]rune(s)); l < n {
		return s + strings.Repeat(" ", n-l)
	}
	return s
}

var funcs = template.FuncMap{
	"join":  strings.Join,
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"trunc": trunc,
	"pad":   pad,
}

func parse(tmpl string) (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return t, nil
}

// Render executes a Go template string with the given data.
// Returns an error if the template is invalid or references undefined keys.
//
// Available template functions:
//   - join: Join string slice with separator (e.g., join .Context "\n")
//   - lower, upper: change case
//   - trunc: Shorten to n runes (e.g., .Title | trunc 40)
//   - pad: Right-pad to n runes for column output
func Render(tmpl string, data any) (string, error) {
	var buf bytes.Buffer
	if err := Execute(&buf, tmpl, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Execute renders tmpl with data into w.
func Execute(w io.Writer, tmpl string, data any) error {
	t, err := parse(tmpl)
	if err != nil {
		return err
	}
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	return nil
}

// Validate renders tmpl against sample and discards the output, reporting
// syntax errors and references to fields sample does not have.
func Validate(tmpl string, sample any) error {
	return Execute(io.Discard, tmpl, sample)
}
