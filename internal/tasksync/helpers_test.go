package tasksync

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasksync/internal/core/config"
	"github.com/colonyops/tasksync/internal/core/eventbus/testbus"
	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/data/db"
	"github.com/colonyops/tasksync/internal/github/githubtest"
)

type testEnv struct {
	app      *App
	provider *githubtest.Repo
	bus      *testbus.Bus
}

const alice = "alice"

func newTestEnv(t *testing.T, files map[string]string) *testEnv {
	t.Helper()

	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := config.DefaultConfig()
	provider := githubtest.NewRepo(files)
	tb := testbus.New(t)

	app := NewApp(&cfg, database, provider, tb.EventBus, zerolog.Nop())
	return &testEnv{app: app, provider: provider, bus: tb}
}

func (e *testEnv) project(t *testing.T, repoURL string) project.Project {
	t.Helper()
	p, err := e.app.Projects.Create(context.Background(), alice, CreateInput{Name: "demo", RepoURL: repoURL})
	require.NoError(t, err)
	return p
}

// collect drains a scan run.
func (e *testEnv) collect(t *testing.T, projectID, identity string) []Progress {
	t.Helper()
	var out []Progress
	for p := range e.app.Scans.Run(context.Background(), projectID, identity) {
		out = append(out, p)
	}
	return out
}

func messages(ps []Progress) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Message
	}
	return out
}
