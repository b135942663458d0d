package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/task"
	"github.com/colonyops/tasksync/pkg/tmpl"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// regex and glob patterns, output templates and file accessibility. The
// configPath argument specifies the config file location to validate (empty
// string skips the config file check). This calls Validate() first for basic
// structural validation.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateGitHub(),
		c.validatePatterns(),
		c.validateFormats(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.GitHub.Token == "" && !c.GitHub.UseGhAuth {
		warnings = append(warnings, ValidationWarning{
			Category: "GitHub",
			Message:  "no token configured and use_gh_auth is off; requests are unauthenticated and heavily rate limited",
		})
	}

	if c.Scan.BatchSize > 50 {
		warnings = append(warnings, ValidationWarning{
			Category: "Scan",
			Item:     "batch_size",
			Message:  fmt.Sprintf("batch_size %d is likely to trip secondary rate limits", c.Scan.BatchSize),
		})
	}

	if c.Scan.CacheTTL > 0 && c.Scan.CacheTTL < time.Minute {
		warnings = append(warnings, ValidationWarning{
			Category: "Scan",
			Item:     "cache_ttl",
			Message:  "cache_ttl under a minute makes the blob cache ineffective",
		})
	}

	seen := make(map[string]bool)
	for _, m := range c.Defaults.Tags {
		for _, s := range m.Match {
			if seen[s] {
				warnings = append(warnings, ValidationWarning{
					Category: "Defaults",
					Item:     m.Name,
					Message:  fmt.Sprintf("match string %q is shadowed by an earlier tag", s),
				})
			}
			seen[s] = true
		}
	}

	return warnings
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateGitHub() error {
	return criterio.ValidateStruct(
		criterio.Run("github.base_url", c.GitHub.BaseURL, func(raw string) error {
			if raw == "" {
				return nil
			}
			u, err := url.Parse(raw)
			if err != nil {
				return err
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("scheme must be http or https")
			}
			if !strings.HasSuffix(u.Path, "/") {
				return fmt.Errorf("must end with a trailing slash")
			}
			return nil
		}),
	)
}

// validatePatterns checks every default ignore regex and glob compiles.
func (c *Config) validatePatterns() error {
	var errs criterio.FieldErrorsBuilder

	for i, p := range c.Defaults.Ignore {
		if _, err := regexp.Compile(p); err != nil {
			errs = errs.Append(fmt.Sprintf("defaults.ignore[%d]", i), fmt.Errorf("invalid regex %q: %w", p, err))
		}
	}

	for i, g := range c.Defaults.IgnoreGlobs {
		if !doublestar.ValidatePattern(g) {
			errs = errs.Append(fmt.Sprintf("defaults.ignore_globs[%d]", i), fmt.Errorf("invalid glob %q", g))
		}
	}

	for i, m := range c.Defaults.Tags {
		for j, s := range m.Match {
			if strings.TrimSpace(s) == "" && s != "" {
				errs = errs.Append(fmt.Sprintf("defaults.tags[%d].match[%d]", i, j), fmt.Errorf("match string is only whitespace"))
			}
		}
	}

	return errs.ToError()
}

// validateFormats renders each output template against a sample row.
func (c *Config) validateFormats() error {
	var errs criterio.FieldErrorsBuilder

	if c.Formats.ChangeSet != "" {
		sample := scan.ChangeSet{Results: []diff.Result{}}
		if err := tmpl.Validate(c.Formats.ChangeSet, sample); err != nil {
			errs = errs.Append("formats.change_set", fmt.Errorf("template error: %w", err))
		}
	}

	if c.Formats.Task != "" {
		if err := tmpl.Validate(c.Formats.Task, task.Task{}); err != nil {
			errs = errs.Append("formats.task", fmt.Errorf("template error: %w", err))
		}
	}

	return errs.ToError()
}
