// Package styles provides shared lipgloss styles for CLI output.
package styles

import (
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/tasksync/internal/core/diff"
)

// Palette defines a minimal semantic theme palette.
type Palette struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

var themes = map[string]Palette{
	"tokyo-night": {
		Primary:    lipgloss.Color("#7aa2f7"),
		Secondary:  lipgloss.Color("#7dcfff"),
		Foreground: lipgloss.Color("#c0caf5"),
		Muted:      lipgloss.Color("#565f89"),
		Success:    lipgloss.Color("#9ece6a"),
		Warning:    lipgloss.Color("#e0af68"),
		Error:      lipgloss.Color("#f7768e"),
	},
	"gruvbox": {
		Primary:    lipgloss.Color("#83a598"),
		Secondary:  lipgloss.Color("#8ec07c"),
		Foreground: lipgloss.Color("#ebdbb2"),
		Muted:      lipgloss.Color("#665c54"),
		Success:    lipgloss.Color("#b8bb26"),
		Warning:    lipgloss.Color("#fabd2f"),
		Error:      lipgloss.Color("#fb4934"),
	},
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

// Progress glyphs.
const (
	GlyphStep = "•"
	GlyphDone = "✓"
	GlyphFail = "✗"
)

var (
	HeaderStyle  lipgloss.Style
	TextStyle    lipgloss.Style
	MutedStyle   lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	IDStyle      lipgloss.Style
	ContextStyle lipgloss.Style
	BoxStyle     lipgloss.Style

	typeStyles map[diff.Type]lipgloss.Style
)

// SetTheme rebuilds all global styles from p.
func SetTheme(p Palette) {
	HeaderStyle = lipgloss.NewStyle().Foreground(p.Primary).Bold(true)
	TextStyle = lipgloss.NewStyle().Foreground(p.Foreground)
	MutedStyle = lipgloss.NewStyle().Foreground(p.Muted)
	SuccessStyle = lipgloss.NewStyle().Foreground(p.Success)
	WarningStyle = lipgloss.NewStyle().Foreground(p.Warning)
	ErrorStyle = lipgloss.NewStyle().Foreground(p.Error).Bold(true)
	IDStyle = lipgloss.NewStyle().Foreground(p.Secondary)
	ContextStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(p.Muted).
		PaddingLeft(1)
	BoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Primary).
		Padding(0, 1)

	badge := lipgloss.NewStyle().Bold(true).Width(6)
	typeStyles = map[diff.Type]lipgloss.Style{
		diff.TypeNew:    badge.Foreground(p.Success),
		diff.TypeUpdate: badge.Foreground(p.Warning),
		diff.TypeMove:   badge.Foreground(p.Secondary),
		diff.TypeSame:   badge.Foreground(p.Muted),
		diff.TypeDelete: badge.Foreground(p.Error),
	}
}

// TypeBadge renders a diff type as a fixed width colored label.
func TypeBadge(t diff.Type) string {
	s, ok := typeStyles[t]
	if !ok {
		return string(t)
	}
	return s.Render(string(t))
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}
