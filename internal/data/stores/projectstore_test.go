package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/core/tags"
)

func TestProjectStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		store := NewProjectStore(openTestDB(t))

		p := project.Project{Name: "demo", OwnerID: "alice", RepoURL: "https://github.com/acme/demo", DefaultRef: "main"}
		require.NoError(t, store.Create(ctx, &p))
		assert.NotEmpty(t, p.ID)

		got, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "demo", got.Name)
		assert.Equal(t, "alice", got.OwnerID)
		assert.Equal(t, "main", got.Ref())
		assert.Equal(t, project.ScanIdle, got.ScanStatus)
	})

	t.Run("get not found", func(t *testing.T) {
		store := NewProjectStore(openTestDB(t))

		_, err := store.Get(ctx, "nope")
		require.ErrorIs(t, err, project.ErrNotFound)
	})

	t.Run("list filters by owner", func(t *testing.T) {
		store := NewProjectStore(openTestDB(t))

		require.NoError(t, store.Create(ctx, &project.Project{Name: "a", OwnerID: "alice"}))
		require.NoError(t, store.Create(ctx, &project.Project{Name: "b", OwnerID: "bob"}))

		got, err := store.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].Name)
	})

	t.Run("set repo", func(t *testing.T) {
		database := openTestDB(t)
		store := NewProjectStore(database)
		p := project.Project{Name: "a", OwnerID: "alice"}
		require.NoError(t, store.Create(ctx, &p))

		require.NoError(t, store.SetRepo(ctx, p.ID, "git@github.com:acme/a.git", "dev"))

		got, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "git@github.com:acme/a.git", got.RepoURL)
		assert.Equal(t, "dev", got.Ref())

		require.ErrorIs(t, store.SetRepo(ctx, "missing", "x", ""), project.ErrNotFound)
	})

	t.Run("config round trip", func(t *testing.T) {
		database := openTestDB(t)
		store := NewProjectStore(database)
		p := seedProject(t, database)

		cfg, err := store.Config(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, cfg.IsEmpty())

		want := project.Config{
			Tags:   []tags.Matcher{{Name: "todo", Match: []string{"TODO:"}}},
			Ignore: []string{"node_modules"},
		}
		require.NoError(t, store.SetConfig(ctx, p.ID, want))

		cfg, err = store.Config(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Tags, cfg.Tags)
		assert.Equal(t, want.Ignore, cfg.Ignore)
	})

	t.Run("malformed config", func(t *testing.T) {
		database := openTestDB(t)
		store := NewProjectStore(database)
		p := seedProject(t, database)

		_, err := database.Conn().ExecContext(ctx, `UPDATE projects SET config = '{not json' WHERE id = ?`, p.ID)
		require.NoError(t, err)

		_, err = store.Config(ctx, p.ID)
		require.ErrorIs(t, err, project.ErrInvalidConfig)
	})

	t.Run("scan status compare and swap", func(t *testing.T) {
		database := openTestDB(t)
		store := NewProjectStore(database)
		p := seedProject(t, database)

		require.NoError(t, store.BeginScan(ctx, p.ID))
		require.ErrorIs(t, store.BeginScan(ctx, p.ID), project.ErrScanInFlight)

		got, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, project.ScanScanning, got.ScanStatus)

		require.NoError(t, store.EndScan(ctx, p.ID))
		require.NoError(t, store.BeginScan(ctx, p.ID))
	})

	t.Run("abandoned scan lock is taken over after the lease", func(t *testing.T) {
		database := openTestDB(t)
		store := NewProjectStore(database).WithScanLease(time.Hour)
		p := seedProject(t, database)

		require.NoError(t, store.BeginScan(ctx, p.ID))
		require.ErrorIs(t, store.BeginScan(ctx, p.ID), project.ErrScanInFlight)

		// The process holding the lock died two hours ago without EndScan.
		_, err := database.Conn().ExecContext(ctx,
			`UPDATE projects SET scan_started_at = ? WHERE id = ?`,
			time.Now().Add(-2*time.Hour).UnixNano(), p.ID)
		require.NoError(t, err)

		require.NoError(t, store.BeginScan(ctx, p.ID))
		require.ErrorIs(t, store.BeginScan(ctx, p.ID), project.ErrScanInFlight, "the new lock is fresh")
	})

	t.Run("begin scan on missing project", func(t *testing.T) {
		store := NewProjectStore(openTestDB(t))
		require.ErrorIs(t, store.BeginScan(ctx, "missing"), project.ErrNotFound)
	})
}
