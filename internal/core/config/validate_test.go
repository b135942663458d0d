package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasksync/internal/core/tags"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.GitHub.BaseURL = "https://ghe.example.com/api/v3/"
	cfg.Defaults.IgnoreGlobs = []string{"**/*.pb.go", "docs/**"}
	cfg.Formats = FormatConfig{
		ChangeSet: "{{ .ID }} {{ .Status }} {{ len .Results }}",
		Task:      "{{ .ID }} {{ .Title | trunc 40 }} {{ .Progress }}",
	}

	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_InvalidPatterns(t *testing.T) {
	cfg := validConfig(t)
	cfg.Defaults.Ignore = []string{"ok", "("}
	cfg.Defaults.IgnoreGlobs = []string{"[unterminated"}

	// Validate compiles the same regexes through the filter, so call the
	// deep pass directly to see every field error.
	err := cfg.validatePatterns()

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 2)
	assert.Equal(t, "defaults.ignore[1]", fieldErrs[0].Field)
	assert.Equal(t, "defaults.ignore_globs[0]", fieldErrs[1].Field)
}

func TestValidateDeep_InvalidFormats(t *testing.T) {
	cfg := validConfig(t)
	cfg.Formats = FormatConfig{
		ChangeSet: "{{ .Nope }}",
		Task:      "{{ .Title ",
	}

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 2)
	assert.Contains(t, fieldErrs[0].Err.Error(), "template error")
}

func TestValidateDeep_BaseURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"", false},
		{"https://ghe.example.com/api/v3/", false},
		{"https://ghe.example.com/api/v3", true},
		{"ftp://ghe.example.com/", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.GitHub.BaseURL = tt.url
			err := cfg.ValidateDeep("")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateDeep_FileAccess(t *testing.T) {
	t.Run("data dir is a file", func(t *testing.T) {
		cfg := validConfig(t)
		file := filepath.Join(t.TempDir(), "data")
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		cfg.DataDir = file

		err := cfg.ValidateDeep("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("config path is a directory", func(t *testing.T) {
		cfg := validConfig(t)
		dir := t.TempDir()

		err := cfg.ValidateDeep(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is a directory")
	})

	t.Run("missing config file is fine", func(t *testing.T) {
		cfg := validConfig(t)
		require.NoError(t, cfg.ValidateDeep(filepath.Join(t.TempDir(), "none.yaml")))
	})
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	assert.Empty(t, cfg.Warnings())

	cfg.GitHub.UseGhAuth = false
	cfg.Scan.BatchSize = 100
	cfg.Defaults.Tags = []tags.Matcher{
		{Name: "todo", Match: []string{"TODO:"}},
		{Name: "also", Match: []string{"TODO:"}},
	}

	warnings := cfg.Warnings()
	require.Len(t, warnings, 3)
	assert.Equal(t, "GitHub", warnings[0].Category)
	assert.Equal(t, "batch_size", warnings[1].Item)
	assert.Equal(t, "also", warnings[2].Item)
}
