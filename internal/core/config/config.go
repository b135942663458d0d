// Package config handles configuration loading and validation for tasksync.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/core/styles"
	"github.com/colonyops/tasksync/internal/core/tags"
)

// Config holds the application configuration.
type Config struct {
	GitHub   GitHubConfig   `yaml:"github"`
	Scan     ScanConfig     `yaml:"scan"`
	Defaults project.Config `yaml:"defaults"` // used for projects without a stored config
	Database DatabaseConfig `yaml:"database"`
	Formats  FormatConfig   `yaml:"formats"`
	Theme    string         `yaml:"theme"`
	DataDir  string         `yaml:"-"` // set by caller, not from config file
}

// GitHubConfig configures the repository provider.
type GitHubConfig struct {
	Token     string `yaml:"token"`
	BaseURL   string `yaml:"base_url"`    // empty means api.github.com
	UseGhAuth bool   `yaml:"use_gh_auth"` // fall back to `gh auth token` when Token is empty
}

// ScanConfig tunes the fetch orchestrator and parser.
type ScanConfig struct {
	BatchSize        int           `yaml:"batch_size"`
	ContextBefore    int           `yaml:"context_before"`
	ContextAfter     int           `yaml:"context_after"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	RespectGitignore *bool         `yaml:"respect_gitignore"`
	// StaleAfter is how long a project's scan lock is honored before a new
	// scan may take it over from a process that died mid-scan.
	StaleAfter       time.Duration `yaml:"stale_after"`
}

// Gitignore reports whether a repository's root .gitignore should be honored.
func (s ScanConfig) Gitignore() bool {
	return s.RespectGitignore == nil || *s.RespectGitignore
}

// DatabaseConfig holds the sqlite pool settings.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// FormatConfig holds the default Go templates for list output. Empty means
// the built-in table rendering.
type FormatConfig struct {
	ChangeSet string `yaml:"change_set"`
	Task      string `yaml:"task"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GitHub: GitHubConfig{
			UseGhAuth: true,
		},
		Scan: ScanConfig{
			BatchSize:     10,
			ContextBefore: tags.DefaultContextBefore,
			ContextAfter:  tags.DefaultContextAfter,
			CacheTTL:      24 * time.Hour,
			StaleAfter:    30 * time.Minute,
		},
		Defaults: project.DefaultConfig(),
		Theme:    styles.DefaultTheme,
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			BusyTimeout:  5000,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.DataDir = dataDir
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Scan.BatchSize == 0 {
		c.Scan.BatchSize = defaults.Scan.BatchSize
	}
	if c.Scan.ContextBefore == 0 {
		c.Scan.ContextBefore = defaults.Scan.ContextBefore
	}
	if c.Scan.ContextAfter == 0 {
		c.Scan.ContextAfter = defaults.Scan.ContextAfter
	}
	if c.Scan.CacheTTL == 0 {
		c.Scan.CacheTTL = defaults.Scan.CacheTTL
	}
	if c.Scan.StaleAfter == 0 {
		c.Scan.StaleAfter = defaults.Scan.StaleAfter
	}
	if c.Defaults.IsEmpty() {
		c.Defaults.Tags = defaults.Defaults.Tags
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Scan.BatchSize < 1 {
		return fmt.Errorf("scan.batch_size must be at least 1")
	}

	if c.Scan.ContextBefore < 0 || c.Scan.ContextAfter < 0 {
		return fmt.Errorf("scan.context_before and scan.context_after cannot be negative")
	}

	if c.Scan.CacheTTL < 0 {
		return fmt.Errorf("scan.cache_ttl cannot be negative")
	}

	if c.Scan.StaleAfter < time.Minute {
		return fmt.Errorf("scan.stale_after must be at least 1m")
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}

	if c.Database.MaxIdleConns < 0 || c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns must be between 0 and max_open_conns")
	}

	if _, ok := styles.GetPalette(c.Theme); !ok {
		return fmt.Errorf("theme %q is not one of %s", c.Theme, strings.Join(styles.ThemeNames(), ", "))
	}

	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	return nil
}

// ParserConfig returns the parser configuration for a project config,
// applying the configured context window.
func (c *Config) ParserConfig(pc project.Config) tags.Config {
	out := pc.ParserConfig()
	out.ContextBefore = c.Scan.ContextBefore
	out.ContextAfter = c.Scan.ContextAfter
	return out
}
