package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/styles"
	"github.com/colonyops/tasksync/pkg/iojson"
)

// isTerminal reports whether w is attached to an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

func jsonFlag(dest *bool) *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "json",
		Usage:       "output as JSON",
		Destination: dest,
	}
}

func writeJSON(w io.Writer, v any) error {
	return iojson.WriteWith(w, os.Stderr, v)
}

func successf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, styles.SuccessStyle.Render(styles.GlyphDone)+" "+fmt.Sprintf(format, args...))
}

func failf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, styles.ErrorStyle.Render(styles.GlyphFail)+" "+fmt.Sprintf(format, args...))
}

func warnf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, styles.WarningStyle.Render("!")+" "+fmt.Sprintf(format, args...))
}

func stepf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, styles.MutedStyle.Render(styles.GlyphStep)+" "+fmt.Sprintf(format, args...))
}

// summaryLine renders counts in diff type order, skipping empty types.
func summaryLine(s diff.Summary) string {
	parts := make([]string, 0, len(diff.Types))
	for _, t := range diff.Types {
		if n := s[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", strings.ToLower(string(t)), n))
		}
	}
	if len(parts) == 0 {
		return "no annotations"
	}
	return strings.Join(parts, ", ")
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
