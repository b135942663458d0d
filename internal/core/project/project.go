// Package project defines the scanned-project domain: a repository link,
// its owner and the tag configuration used when scanning it.
package project

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/colonyops/tasksync/internal/core/tags"
)

// ScanStatus guards against concurrent scans of the same project.
type ScanStatus string

const (
	ScanIdle     ScanStatus = "idle"
	ScanScanning ScanStatus = "scanning"
)

// Project is a repository registered for scanning.
type Project struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	OwnerID    string     `json:"owner_id"`
	RepoURL    string     `json:"repo_url,omitempty"`
	DefaultRef string     `json:"default_ref"`
	ScanStatus ScanStatus `json:"scan_status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// OwnedBy reports whether identity owns the project.
func (p Project) OwnedBy(identity string) bool {
	return identity != "" && p.OwnerID == identity
}

// Ref returns the ref to scan, defaulting to HEAD.
func (p Project) Ref() string {
	if p.DefaultRef == "" {
		return "HEAD"
	}
	return p.DefaultRef
}

// Config is the per-project scan configuration.
type Config struct {
	Tags        []tags.Matcher `json:"tags"                   yaml:"tags"`
	Ignore      []string       `json:"ignore"                 yaml:"ignore"`
	IgnoreGlobs []string       `json:"ignore_globs,omitempty" yaml:"ignore_globs"`
}

// IsEmpty reports whether no tags are configured.
func (c Config) IsEmpty() bool {
	return len(c.Tags) == 0
}

// Validate checks that every tag has a name and at least one usable match
// string, and that every ignore pattern compiles.
func (c Config) Validate() error {
	if len(c.Tags) == 0 {
		return fmt.Errorf("at least one tag is required")
	}

	for i, t := range c.Tags {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("tags[%d]: name is required", i)
		}
		usable := false
		for _, m := range t.Match {
			if m != "" {
				usable = true
				break
			}
		}
		if !usable {
			return fmt.Errorf("tags[%d] (%s): at least one non-empty match string is required", i, t.Name)
		}
	}

	if _, err := tags.NewFilter(c.Ignore, c.IgnoreGlobs); err != nil {
		return err
	}

	return nil
}

// ParserConfig converts c to the parser's configuration.
func (c Config) ParserConfig() tags.Config {
	return tags.Config{Tags: c.Tags, Ignore: c.Ignore}
}

// Filter builds the path filter for c.
func (c Config) Filter() (*tags.Filter, error) {
	return tags.NewFilter(c.Ignore, c.IgnoreGlobs)
}

// DefaultConfig is used for projects that have not configured any tags.
func DefaultConfig() Config {
	return Config{
		Tags: []tags.Matcher{
			{Name: "todo", Match: []string{"TODO:", "@todo"}},
			{Name: "fixme", Match: []string{"FIXME:", "@fixme"}},
			{Name: "idea", Match: []string{"IDEA:", "@idea"}},
		},
		Ignore: []string{
			"node_modules",
			`^vendor/`,
			`\.min\.js$`,
			`(^|/)dist/`,
		},
	}
}

var (
	scpLike   = regexp.MustCompile(`^[\w.-]+@([\w.-]+):(.+)$`)
	ownerRepo = regexp.MustCompile(`^[\w.-]+/[\w.-]+$`)
)

// ParseRepoURL extracts owner and repository name from a GitHub style URL.
// Accepted forms: https://host/owner/repo(.git), git@host:owner/repo(.git),
// host/owner/repo and owner/repo.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("empty repository url")
	}

	var path string
	switch {
	case scpLike.MatchString(raw):
		path = scpLike.FindStringSubmatch(raw)[2]
	case strings.Contains(raw, "://"):
		u, perr := url.Parse(raw)
		if perr != nil {
			return "", "", fmt.Errorf("parse repository url: %w", perr)
		}
		path = u.Path
	case ownerRepo.MatchString(strings.TrimSuffix(raw, ".git")):
		path = raw
	default:
		// host/owner/repo without a scheme
		if i := strings.Index(raw, "/"); i > 0 && strings.Contains(raw[:i], ".") {
			path = raw[i+1:]
		} else {
			path = raw
		}
	}

	path = strings.Trim(path, "/")
	path = strings.TrimSuffix(path, ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository url %q does not contain owner/repo", raw)
	}

	return parts[0], parts[1], nil
}
