// Package github is the remote repository provider. It lists a repository's
// file tree and reads individual file contents through the GitHub REST API.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"github.com/rs/zerolog"
)

// EntryType is the git object type of a tree entry.
type EntryType string

const (
	EntryBlob   EntryType = "blob"
	EntryTree   EntryType = "tree"
	EntryCommit EntryType = "commit" // submodule
)

// TreeEntry is one path in a recursive tree listing.
type TreeEntry struct {
	Path string    `json:"path"`
	Type EntryType `json:"type"`
	SHA  string    `json:"sha"`
	Size int       `json:"size"`
}

// IsBlob reports whether the entry is a regular file.
func (e TreeEntry) IsBlob() bool {
	return e.Type == EntryBlob
}

// Options configures a Client.
type Options struct {
	Token string
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise.
	// Must end with a slash.
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to the GitHub REST API.
type Client struct {
	gh  *gh.Client
	log zerolog.Logger
}

// New builds a Client. An empty token yields an unauthenticated client,
// which GitHub limits to 60 requests per hour.
func New(opts Options) (*Client, error) {
	c := gh.NewClient(opts.HTTPClient)
	if opts.Token != "" {
		c = c.WithAuthToken(opts.Token)
	}

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		c.BaseURL = u
	}

	return &Client{gh: c, log: opts.Logger}, nil
}

// Tree returns every entry of the repository tree at ref, recursively.
func (c *Client) Tree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error) {
	tree, _, err := c.gh.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, classify(err)
	}
	if tree == nil {
		return nil, &Error{Kind: KindParse, Message: "missing tree in response"}
	}

	if tree.GetTruncated() {
		c.log.Warn().
			Str("owner", owner).
			Str("repo", repo).
			Str("ref", ref).
			Int("entries", len(tree.Entries)).
			Msg("tree listing truncated by github, some files will not be scanned")
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e == nil || e.Path == nil {
			continue
		}
		entries = append(entries, TreeEntry{
			Path: e.GetPath(),
			Type: EntryType(e.GetType()),
			SHA:  e.GetSHA(),
			Size: e.GetSize(),
		})
	}

	return entries, nil
}

// FileContent returns the base64 payload of one file as GitHub sends it,
// embedded newlines included. Use DecodeContent to get the raw bytes.
func (c *Client) FileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return "", classify(err)
	}
	if file == nil || file.Content == nil {
		return "", &Error{Kind: KindParse, Message: "missing content field"}
	}

	switch enc := file.GetEncoding(); enc {
	case "base64":
	case "", "none":
		return "", &Error{Kind: KindParse, Message: fmt.Sprintf("%s: content not inlined", path)}
	default:
		return "", &Error{Kind: KindParse, Message: fmt.Sprintf("%s: unsupported encoding %q", path, enc)}
	}

	return *file.Content, nil
}

// DecodeContent strips the newlines GitHub wraps base64 payloads with and
// decodes the result.
func DecodeContent(encoded string) ([]byte, error) {
	clean := strings.NewReplacer("\n", "", "\r", "").Replace(encoded)
	raw, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, &Error{Kind: KindParse, Message: fmt.Sprintf("decode content: %v", err)}
	}
	return raw, nil
}
