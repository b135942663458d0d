package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/colonyops/tasksync/internal/core/diff"
)

func TestThemes(t *testing.T) {
	assert.Equal(t, []string{"gruvbox", "tokyo-night"}, ThemeNames())

	p, ok := GetPalette(DefaultTheme)
	assert.True(t, ok)
	assert.Equal(t, lipgloss.Color("#7aa2f7"), p.Primary)

	_, ok = GetPalette("missing")
	assert.False(t, ok)
}

func TestTypeBadge(t *testing.T) {
	for _, typ := range diff.Types {
		got := TypeBadge(typ)
		assert.Contains(t, got, string(typ))
		assert.Equal(t, 6, lipgloss.Width(got), "badges align in columns")
	}

	assert.Equal(t, "ODD", TypeBadge("ODD"))
}
