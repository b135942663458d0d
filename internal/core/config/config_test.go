package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(dataDir, "nope.yaml"), dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, 10, cfg.Scan.BatchSize)
	assert.Equal(t, 4, cfg.Scan.ContextBefore)
	assert.Equal(t, 5, cfg.Scan.ContextAfter)
	assert.Equal(t, 24*time.Hour, cfg.Scan.CacheTTL)
	assert.True(t, cfg.Scan.Gitignore())
	assert.True(t, cfg.GitHub.UseGhAuth)
	assert.False(t, cfg.Defaults.IsEmpty())
	assert.Equal(t, "tokyo-night", cfg.Theme)
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
github:
  token: abc
  base_url: https://ghe.example.com/api/v3/
scan:
  batch_size: 4
  cache_ttl: 1h
  respect_gitignore: false
defaults:
  tags:
    - name: hack
      match: ["HACK:"]
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.GitHub.Token)
	assert.Equal(t, 4, cfg.Scan.BatchSize)
	assert.Equal(t, time.Hour, cfg.Scan.CacheTTL)
	assert.Equal(t, 5, cfg.Scan.ContextAfter)
	assert.False(t, cfg.Scan.Gitignore())
	require.Len(t, cfg.Defaults.Tags, 1)
	assert.Equal(t, "hack", cfg.Defaults.Tags[0].Name)
	assert.NotEmpty(t, cfg.Defaults.Ignore, "ignore list keeps its defaults when not set")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			body:    "scan: [",
			wantErr: "parse config file",
		},
		{
			name:    "negative batch size",
			body:    "scan:\n  batch_size: -1\n",
			wantErr: "scan.batch_size",
		},
		{
			name:    "idle above open",
			body:    "database:\n  max_open_conns: 1\n  max_idle_conns: 3\n",
			wantErr: "max_idle_conns",
		},
		{
			name:    "tag without match strings",
			body:    "defaults:\n  tags:\n    - name: todo\n      match: [\"\"]\n",
			wantErr: "defaults",
		},
		{
			name:    "scan lock lease too short",
			body:    "scan:\n  stale_after: 10s\n",
			wantErr: "scan.stale_after",
		},
		{
			name:    "unknown theme",
			body:    "theme: solarized\n",
			wantErr: "theme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_RequiresDataDir(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory")
}

func TestParserConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.ContextBefore = 1
	cfg.Scan.ContextAfter = 2

	pc := cfg.ParserConfig(cfg.Defaults)
	assert.Equal(t, 1, pc.ContextBefore)
	assert.Equal(t, 2, pc.ContextAfter)
	assert.Equal(t, cfg.Defaults.Tags, pc.Tags)
}
