package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasksync/internal/core/config"
	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/data/db"
	"github.com/colonyops/tasksync/internal/github"
	"github.com/colonyops/tasksync/internal/github/githubtest"
	"github.com/colonyops/tasksync/internal/tasksync"
)

const owner = "alice"

func newServer(t *testing.T, files map[string]string) (*Server, *githubtest.Repo) {
	t.Helper()

	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := config.DefaultConfig()
	repo := githubtest.NewRepo(files)
	app := tasksync.NewApp(&cfg, database, repo, nil, zerolog.Nop())

	return New(app, owner, zerolog.Nop()), repo
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)

	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok, "expected text content")

	var out T
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out), text.Text)
	return out
}

func errorText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestServer_RegistersTools(t *testing.T) {
	s, _ := newServer(t, nil)
	tools := s.MCP("test").ListTools()

	for _, name := range []string{
		"list_projects",
		"scan_project",
		"list_changes",
		"get_change_set",
		"resolve_changes",
		"list_tasks",
	} {
		assert.Contains(t, tools, name)
	}
	assert.Len(t, tools, 6)
}

func TestServer_Workflow(t *testing.T) {
	s, repo := newServer(t, map[string]string{
		"main.go": "package main\n// TODO: parse flags\n// FIXME: exit code\n",
	})
	ctx := context.Background()

	p, err := s.app.Projects.Create(ctx, owner, tasksync.CreateInput{Name: "cli", RepoURL: "acme/cli"})
	require.NoError(t, err)

	res, err := s.listProjects(ctx, call(nil))
	require.NoError(t, err)
	projects := decode[struct {
		Projects []struct {
			ID string `json:"id"`
		} `json:"projects"`
	}](t, res)
	require.Len(t, projects.Projects, 1)
	assert.Equal(t, p.ID, projects.Projects[0].ID)

	res, err = s.scanProject(ctx, call(map[string]any{"project_id": p.ID}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	scanned := decode[scanResult](t, res)
	assert.False(t, scanned.Failed)
	assert.Equal(t, "done", scanned.Messages[len(scanned.Messages)-1])
	assert.Equal(t, 2, scanned.Summary[diff.TypeNew])
	require.NotEmpty(t, scanned.ChangeSetID)

	res, err = s.listChanges(ctx, call(map[string]any{"status": "pending"}))
	require.NoError(t, err)
	changes := decode[struct {
		ChangeSets []struct {
			ID     string      `json:"id"`
			Status scan.Status `json:"status"`
		} `json:"change_sets"`
	}](t, res)
	require.Len(t, changes.ChangeSets, 1)
	assert.Equal(t, scanned.ChangeSetID, changes.ChangeSets[0].ID)

	res, err = s.getChangeSet(ctx, call(map[string]any{"change_set_id": scanned.ChangeSetID}))
	require.NoError(t, err)
	cs := decode[struct {
		Results []struct {
			ID      string   `json:"id"`
			Type    string   `json:"type"`
			Allowed []string `json:"allowed"`
		} `json:"results"`
	}](t, res)
	require.Len(t, cs.Results, 2)
	assert.Equal(t, []string{"CREATE", "IGNORE"}, cs.Results[0].Allowed)

	res, err = s.resolveChanges(ctx, call(map[string]any{
		"project_id":    p.ID,
		"change_set_id": scanned.ChangeSetID,
		"approved":      true,
		"actions": map[string]any{
			"CREATE": []any{cs.Results[0].ID},
			"IGNORE": []any{cs.Results[1].ID},
		},
		"titles": map[string]any{cs.Results[0].ID: "Flag parsing"},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	resolved := decode[tasksync.ResolveResult](t, res)
	assert.True(t, resolved.Applied)
	assert.Equal(t, scan.StatusAccepted, resolved.Status)
	require.Len(t, resolved.Created, 1)

	res, err = s.listTasks(ctx, call(map[string]any{"project_id": p.ID}))
	require.NoError(t, err)
	tasks := decode[struct {
		Tasks []struct {
			Title string `json:"title"`
		} `json:"tasks"`
	}](t, res)
	require.Len(t, tasks.Tasks, 1)
	assert.Equal(t, "Flag parsing", tasks.Tasks[0].Title)

	// Unchanged annotations produce only SAME results, hidden by default.
	repo.Set("other.txt", "nothing here\n")
	res, err = s.scanProject(ctx, call(map[string]any{"project_id": p.ID}))
	require.NoError(t, err)
	rescanned := decode[scanResult](t, res)
	assert.Equal(t, 2, rescanned.Summary[diff.TypeSame])

	res, err = s.getChangeSet(ctx, call(map[string]any{"change_set_id": rescanned.ChangeSetID}))
	require.NoError(t, err)
	hidden := decode[struct {
		Results []json.RawMessage `json:"results"`
	}](t, res)
	assert.Empty(t, hidden.Results)

	res, err = s.getChangeSet(ctx, call(map[string]any{"change_set_id": rescanned.ChangeSetID, "include_same": true}))
	require.NoError(t, err)
	shown := decode[struct {
		Results []json.RawMessage `json:"results"`
	}](t, res)
	assert.Len(t, shown.Results, 2)
}

func TestServer_Errors(t *testing.T) {
	s, repo := newServer(t, map[string]string{"a.go": "// TODO: x\n"})
	ctx := context.Background()

	p, err := s.app.Projects.Create(ctx, owner, tasksync.CreateInput{Name: "svc", RepoURL: "acme/svc"})
	require.NoError(t, err)

	t.Run("missing argument", func(t *testing.T) {
		res, err := s.scanProject(ctx, call(nil))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("bad status", func(t *testing.T) {
		res, err := s.listChanges(ctx, call(map[string]any{"status": "later"}))
		require.NoError(t, err)
		assert.Contains(t, errorText(t, res), "bad_request")
	})

	t.Run("unknown change-set", func(t *testing.T) {
		res, err := s.getChangeSet(ctx, call(map[string]any{"change_set_id": "nope"}))
		require.NoError(t, err)
		assert.Contains(t, errorText(t, res), "not_found")
	})

	t.Run("invalid action", func(t *testing.T) {
		res, err := s.scanProject(ctx, call(map[string]any{"project_id": p.ID}))
		require.NoError(t, err)
		scanned := decode[scanResult](t, res)

		res, err = s.resolveChanges(ctx, call(map[string]any{
			"project_id":    p.ID,
			"change_set_id": scanned.ChangeSetID,
			"approved":      true,
			"actions":       map[string]any{"ARCHIVE": []any{"x"}},
		}))
		require.NoError(t, err)
		assert.Contains(t, errorText(t, res), "bad_request")
	})

	t.Run("scan failure keeps messages", func(t *testing.T) {
		repo.TreeErr = &github.Error{Kind: github.KindRateLimited, Status: 429}
		t.Cleanup(func() { repo.TreeErr = nil })

		res, err := s.scanProject(ctx, call(map[string]any{"project_id": p.ID}))
		require.NoError(t, err)
		require.True(t, res.IsError)

		out := decode[scanResult](t, res)
		assert.True(t, out.Failed)
		assert.Equal(t, "rate_limited", out.Kind)
		assert.Equal(t, "scanning repo", out.Messages[2])
		assert.Contains(t, out.Messages[len(out.Messages)-1], "error: scan failed")
	})
}
