package tasksync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasksync/internal/core/kv"
	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/core/tags"
	"github.com/colonyops/tasksync/internal/github"
	"github.com/colonyops/tasksync/internal/github/githubtest"
)

func todoConfig() project.Config {
	return project.Config{
		Tags: []tags.Matcher{
			{Name: "todo", Match: []string{"TODO:"}},
			{Name: "idea", Match: []string{"@idea"}},
		},
		Ignore: []string{"node_modules"},
	}
}

func fetchReq() FetchRequest {
	return FetchRequest{Owner: "acme", Repo: "widgets", Ref: "main", Config: todoConfig()}
}

func newTestFetcher(p Provider, opts FetcherOptions) *Fetcher {
	return NewFetcher(p, kv.NewMemory(), opts, zerolog.Nop())
}

func TestFetcher_Fetch(t *testing.T) {
	provider := githubtest.NewRepo(map[string]string{
		"src/app.go":                 "package app\n\n// TODO: handle errors\nfunc Run() {}\n",
		"src/util.go":                "package app\n// @idea cache results\n",
		"README.md":                  "nothing to see\n",
		"node_modules/lib/index.js":  "// TODO: never reported\n",
		"src/nested/deep/handler.go": "// TODO: add tracing\n",
	})

	f := newTestFetcher(provider, FetcherOptions{})
	res, err := f.Fetch(context.Background(), fetchReq())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Files)
	assert.Equal(t, 1, res.Ignored)
	assert.Empty(t, res.Skipped)
	assert.False(t, res.RepoConfig)
	assert.Zero(t, provider.Calls("node_modules/lib/index.js"))

	require.Len(t, res.Tasks, 3)

	got := make([]string, len(res.Tasks))
	for i, tk := range res.Tasks {
		got[i] = fmt.Sprintf("%s:%d %s %s", tk.File, tk.Line, tk.Tag, tk.Text)
	}
	assert.Equal(t, []string{
		"src/app.go:3 todo handle errors",
		"src/nested/deep/handler.go:1 todo add tracing",
		"src/util.go:2 idea cache results",
	}, got)
}

func TestFetcher_FileFailuresAreSkipped(t *testing.T) {
	provider := githubtest.NewRepo(map[string]string{
		"a.go": "// TODO: first\n",
		"b.go": "// TODO: unreadable\n",
		"c.go": "// TODO: third\n",
	})
	provider.FileErrs["b.go"] = &github.Error{Kind: github.KindAPI, Status: 500, Message: "boom"}

	f := newTestFetcher(provider, FetcherOptions{})
	res, err := f.Fetch(context.Background(), fetchReq())
	require.NoError(t, err)

	assert.Equal(t, []string{"b.go"}, res.Skipped)
	assert.Equal(t, 2, res.Files)
	require.Len(t, res.Tasks, 2)
	assert.Equal(t, "first", res.Tasks[0].Text)
	assert.Equal(t, "third", res.Tasks[1].Text)
	assert.Equal(t, 1, provider.Calls("b.go"), "failed fetches are not retried")
}

func TestFetcher_TreeFailureIsFatal(t *testing.T) {
	provider := githubtest.NewRepo(map[string]string{"a.go": "// TODO: x\n"})
	provider.TreeErr = &github.Error{Kind: github.KindRateLimited, Status: 403, RetryAfter: time.Minute}

	f := newTestFetcher(provider, FetcherOptions{})
	_, err := f.Fetch(context.Background(), fetchReq())
	require.Error(t, err)

	var ghErr *github.Error
	require.ErrorAs(t, err, &ghErr)
	assert.Equal(t, github.KindRateLimited, ghErr.Kind)
	assert.Equal(t, KindRateLimited, Kind(err))
	assert.Zero(t, provider.Calls("a.go"))
}

func TestFetcher_BatchesBoundConcurrency(t *testing.T) {
	files := map[string]string{}
	for i := range 25 {
		files[fmt.Sprintf("f%02d.go", i)] = fmt.Sprintf("// TODO: item %d\n", i)
	}
	provider := githubtest.NewRepo(files)
	provider.Delay = 5 * time.Millisecond

	f := newTestFetcher(provider, FetcherOptions{BatchSize: 10})
	res, err := f.Fetch(context.Background(), fetchReq())
	require.NoError(t, err)

	assert.Len(t, res.Tasks, 25)
	assert.LessOrEqual(t, provider.MaxInflight(), 10)
	assert.Greater(t, provider.MaxInflight(), 1, "files within a batch are fetched concurrently")

	for i, tk := range res.Tasks {
		assert.Equal(t, fmt.Sprintf("f%02d.go", i), tk.File, "results keep tree order")
	}
}

func TestFetcher_CachesByBlobSHA(t *testing.T) {
	provider := githubtest.NewRepo(map[string]string{
		"a.go": "// TODO: stable\n",
		"b.go": "// TODO: before\n",
	})

	f := newTestFetcher(provider, FetcherOptions{CacheTTL: time.Hour})
	first, err := f.Fetch(context.Background(), fetchReq())
	require.NoError(t, err)

	provider.Set("b.go", "// TODO: after\n")

	second, err := f.Fetch(context.Background(), fetchReq())
	require.NoError(t, err)

	assert.Equal(t, 1, provider.Calls("a.go"), "unchanged blob served from cache")
	assert.Equal(t, 2, provider.Calls("b.go"), "changed blob fetched again")

	require.Len(t, second.Tasks, 2)
	assert.Equal(t, first.Tasks[0].Text, second.Tasks[0].Text)
	assert.Equal(t, "after", second.Tasks[1].Text)
}

// ttlRecorder records the TTL of every cache write.
type ttlRecorder struct {
	kv.KV
	ttls []time.Duration
}

func (r *ttlRecorder) Put(ctx context.Context, key string, raw []byte, ttl time.Duration) error {
	r.ttls = append(r.ttls, ttl)
	return r.KV.Put(ctx, key, raw, ttl)
}

func TestFetcher_MemoryCacheEntriesExpire(t *testing.T) {
	provider := githubtest.NewRepo(map[string]string{"a.go": "// TODO: cached\n"})
	cache := &ttlRecorder{KV: kv.NewMemory()}

	f := NewFetcher(provider, cache, FetcherOptions{BatchSize: 1}, zerolog.Nop())
	_, err := f.Fetch(context.Background(), fetchReq())
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{DefaultCacheTTL}, cache.ttls)

	keys, err := cache.Keys(context.Background(), "blob:")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestFetcher_Gitignore(t *testing.T) {
	files := map[string]string{
		".gitignore":      "build/\n*.log\n",
		"build/out.go":    "// TODO: generated\n",
		"debug.log":       "TODO: log line\n",
		"src/main.go":     "// TODO: real\n",
		"src/main_gen.go": "// TODO: also real\n",
	}

	t.Run("respected", func(t *testing.T) {
		f := newTestFetcher(githubtest.NewRepo(files), FetcherOptions{RespectGitignore: true})
		res, err := f.Fetch(context.Background(), fetchReq())
		require.NoError(t, err)

		var paths []string
		for _, tk := range res.Tasks {
			paths = append(paths, tk.File)
		}
		assert.Equal(t, []string{"src/main.go", "src/main_gen.go"}, paths)
		assert.Equal(t, 2, res.Ignored)
	})

	t.Run("disabled", func(t *testing.T) {
		f := newTestFetcher(githubtest.NewRepo(files), FetcherOptions{RespectGitignore: false})
		res, err := f.Fetch(context.Background(), fetchReq())
		require.NoError(t, err)
		assert.Len(t, res.Tasks, 4)
	})
}

func TestFetcher_RepoConfigOverride(t *testing.T) {
	t.Run("overrides tags", func(t *testing.T) {
		provider := githubtest.NewRepo(map[string]string{
			".tasksync.json": `{
				// only hacks matter here
				"tags": [{"name": "hack", "match": ["HACK:"]}],
			}`,
			"a.go": "// TODO: not matched\n// HACK: matched\n",
		})

		f := newTestFetcher(provider, FetcherOptions{})
		res, err := f.Fetch(context.Background(), fetchReq())
		require.NoError(t, err)

		assert.True(t, res.RepoConfig)
		assert.Equal(t, []string{"node_modules"}, res.Config.Ignore, "unset fields keep the stored config")
		require.Len(t, res.Tasks, 1)
		assert.Equal(t, "hack", res.Tasks[0].Tag)
		assert.Equal(t, "matched", res.Tasks[0].Text)
	})

	t.Run("unreadable config falls back to stored config", func(t *testing.T) {
		provider := githubtest.NewRepo(map[string]string{
			".tasksync.json": `{"tags": [{"name": "hack", "match": ["HACK:"]}]}`,
			"a.go":           "// TODO: still matched\n// HACK: not matched\n",
		})
		provider.FileErrs[".tasksync.json"] = &github.Error{Kind: github.KindAPI, Status: 502, Message: "bad gateway"}

		f := newTestFetcher(provider, FetcherOptions{})
		res, err := f.Fetch(context.Background(), fetchReq())
		require.NoError(t, err)

		assert.False(t, res.RepoConfig)
		assert.Equal(t, []string{".tasksync.json"}, res.Skipped)
		assert.Equal(t, todoConfig().Tags, res.Config.Tags)
		assert.Equal(t, 1, res.Files)
		require.Len(t, res.Tasks, 1)
		assert.Equal(t, "todo", res.Tasks[0].Tag)
		assert.Equal(t, "still matched", res.Tasks[0].Text)
	})

	t.Run("invalid config fails the fetch", func(t *testing.T) {
		provider := githubtest.NewRepo(map[string]string{
			".tasksync.json": `{"ignore": ["(unclosed"]}`,
			"a.go":           "// TODO: x\n",
		})

		f := newTestFetcher(provider, FetcherOptions{})
		_, err := f.Fetch(context.Background(), fetchReq())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfig)
		assert.Equal(t, KindConfig, Kind(err))
	})
}

func TestFetcher_SkipsBinaryContent(t *testing.T) {
	provider := githubtest.NewRepo(map[string]string{
		"logo.png": "\x89PNG\x00\x00TODO: not text",
		"a.go":     "// TODO: text\n",
	})

	f := newTestFetcher(provider, FetcherOptions{})
	res, err := f.Fetch(context.Background(), fetchReq())
	require.NoError(t, err)

	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "a.go", res.Tasks[0].File)
}

func TestFetcher_CanceledContext(t *testing.T) {
	provider := githubtest.NewRepo(map[string]string{"a.go": "// TODO: x\n"})
	f := newTestFetcher(provider, FetcherOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, fetchReq())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
