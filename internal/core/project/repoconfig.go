package project

import (
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"
)

// RepoConfigFile is the name of the optional config file read from the root
// of a scanned repository.
const RepoConfigFile = ".tasksync.json"

// ParseRepoConfig decodes a JSONC repository config. Comments and trailing
// commas are allowed.
func ParseRepoConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

// Merge returns c with every non-empty field of overlay replacing its
// counterpart.
func (c Config) Merge(overlay Config) Config {
	if len(overlay.Tags) > 0 {
		c.Tags = overlay.Tags
	}
	if len(overlay.Ignore) > 0 {
		c.Ignore = overlay.Ignore
	}
	if len(overlay.IgnoreGlobs) > 0 {
		c.IgnoreGlobs = overlay.IgnoreGlobs
	}
	return c
}
