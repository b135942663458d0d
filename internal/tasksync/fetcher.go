package tasksync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/colonyops/tasksync/internal/core/kv"
	"github.com/colonyops/tasksync/internal/core/logging"
	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/core/tags"
	"github.com/colonyops/tasksync/internal/github"
)

// DefaultBatchSize is how many file contents are fetched concurrently.
const DefaultBatchSize = 10

// DefaultCacheTTL bounds cached blob contents when no TTL is configured.
const DefaultCacheTTL = time.Hour

const gitignoreFile = ".gitignore"

// Provider is the remote repository capability the fetcher depends on.
// *github.Client satisfies it.
type Provider interface {
	// Tree lists every entry of the repository at ref, recursively.
	Tree(ctx context.Context, owner, repo, ref string) ([]github.TreeEntry, error)
	// FileContent returns the base64 encoded contents of one file.
	FileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
}

// FetcherOptions tunes a Fetcher.
type FetcherOptions struct {
	BatchSize        int
	CacheTTL         time.Duration
	RespectGitignore bool
}

// FetchRequest describes one repository scan.
type FetchRequest struct {
	Owner  string
	Repo   string
	Ref    string
	Config project.Config

	ContextBefore int
	ContextAfter  int
}

// FetchResult is the parse output of one repository scan.
type FetchResult struct {
	Tasks []tags.ParsedTask
	// Files is the number of files fetched and parsed.
	Files int
	// Ignored is the number of blobs skipped by the path filter.
	Ignored int
	// Skipped lists files whose content could not be fetched.
	Skipped []string
	// Config is the configuration the scan ran with, after any repository
	// override was applied.
	Config project.Config
	// RepoConfig reports whether the repository carried its own config file.
	RepoConfig bool
}

// Fetcher walks a remote tree and parses every file that survives the path
// filter. Content fetches run concurrently within a batch and batches run one
// after another.
type Fetcher struct {
	provider Provider
	cache    *kv.Bucket[string]
	opts     FetcherOptions
	log      zerolog.Logger
}

// NewFetcher creates a Fetcher. A nil cache disables content caching. A zero
// CacheTTL falls back to DefaultCacheTTL so cached blobs always expire.
func NewFetcher(provider Provider, cache kv.KV, opts FetcherOptions, log zerolog.Logger) *Fetcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}

	f := &Fetcher{
		provider: provider,
		opts:     opts,
		log:      logging.Component(log, "fetcher"),
	}
	if cache != nil {
		f.cache = kv.Scoped[string](cache, "blob", opts.CacheTTL)
	}
	return f
}

type fetched struct {
	path    string
	content string
	err     error
}

// Fetch lists the tree at req.Ref and parses every matching file. A tree
// failure is fatal. Individual file failures are logged and skipped.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	entries, err := f.provider.Tree(ctx, req.Owner, req.Repo, req.Ref)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch tree: %w", err)
	}

	blobs := make([]github.TreeEntry, 0, len(entries))
	byPath := make(map[string]github.TreeEntry, len(entries))
	for _, e := range entries {
		if !e.IsBlob() {
			continue
		}
		blobs = append(blobs, e)
		byPath[e.Path] = e
	}

	res := FetchResult{Config: req.Config}

	if e, ok := byPath[project.RepoConfigFile]; ok {
		raw, err := f.content(ctx, req, e)
		if err != nil {
			f.log.Warn().Ctx(ctx).Err(err).Msg("could not fetch " + project.RepoConfigFile + ", using stored config")
			res.Skipped = append(res.Skipped, e.Path)
		} else {
			overlay, err := project.ParseRepoConfig([]byte(raw))
			if err != nil {
				return FetchResult{}, fmt.Errorf("%w: %s: %w", ErrConfig, project.RepoConfigFile, err)
			}
			res.Config = res.Config.Merge(overlay)
			res.RepoConfig = true
			if err := res.Config.Validate(); err != nil {
				return FetchResult{}, fmt.Errorf("%w: %s: %w", ErrConfig, project.RepoConfigFile, err)
			}
		}
	}

	filter, err := res.Config.Filter()
	if err != nil {
		return FetchResult{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if e, ok := byPath[gitignoreFile]; ok && f.opts.RespectGitignore {
		raw, err := f.content(ctx, req, e)
		if err != nil {
			f.log.Warn().Ctx(ctx).Err(err).Msg("could not fetch .gitignore, continuing without it")
		} else {
			filter = filter.WithGitignore(raw)
		}
	}

	targets := make([]github.TreeEntry, 0, len(blobs))
	for _, e := range blobs {
		// The config file lists match strings and would report itself.
		if e.Path == project.RepoConfigFile {
			continue
		}
		if filter.Ignored(e.Path) {
			res.Ignored++
			continue
		}
		targets = append(targets, e)
	}

	parserCfg := res.Config.ParserConfig()
	parserCfg.ContextBefore = req.ContextBefore
	parserCfg.ContextAfter = req.ContextAfter

	res.Tasks = make([]tags.ParsedTask, 0)

	for start := 0; start < len(targets); start += f.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return FetchResult{}, err
		}

		end := min(start+f.opts.BatchSize, len(targets))
		batch := f.fetchBatch(ctx, req, targets[start:end])

		for _, r := range batch {
			if r.err != nil {
				f.log.Debug().Ctx(ctx).Err(r.err).Str("path", r.path).Msg("skipping file")
				res.Skipped = append(res.Skipped, r.path)
				continue
			}
			res.Files++
			if isBinary(r.content) {
				continue
			}
			res.Tasks = append(res.Tasks, tags.ParseFileContent(r.content, r.path, parserCfg)...)
		}
	}

	if err := ctx.Err(); err != nil {
		return FetchResult{}, err
	}

	f.log.Debug().Ctx(ctx).
		Int("files", res.Files).
		Int("ignored", res.Ignored).
		Int("skipped", len(res.Skipped)).
		Int("tasks", len(res.Tasks)).
		Msg("repository fetched")

	return res, nil
}

// fetchBatch fetches every entry concurrently. Each goroutine writes only its
// own slot so no locking is needed.
func (f *Fetcher) fetchBatch(ctx context.Context, req FetchRequest, batch []github.TreeEntry) []fetched {
	out := make([]fetched, len(batch))

	var g errgroup.Group
	for i, e := range batch {
		g.Go(func() error {
			content, err := f.content(ctx, req, e)
			out[i] = fetched{path: e.Path, content: content, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// content returns the decoded contents of a blob, served from the cache when
// the blob SHA has been seen before.
func (f *Fetcher) content(ctx context.Context, req FetchRequest, e github.TreeEntry) (string, error) {
	fetch := func(ctx context.Context) (string, error) {
		encoded, err := f.provider.FileContent(ctx, req.Owner, req.Repo, e.Path, req.Ref)
		if err != nil {
			return "", err
		}
		raw, err := github.DecodeContent(encoded)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	if f.cache == nil || e.SHA == "" {
		return fetch(ctx)
	}
	return f.cache.GetOrFetch(ctx, e.SHA, fetch)
}

// isBinary reports whether content looks like a binary file.
func isBinary(content string) bool {
	head := content
	if len(head) > 8000 {
		head = head[:8000]
	}
	return strings.IndexByte(head, 0) >= 0
}
