package stores

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/tags"
)

func sampleTasks() []tags.ParsedTask {
	return []tags.ParsedTask{
		{ID: "t1", File: "a.go", Line: 3, Tag: "todo", Text: "wire it", Context: []string{"", "// TODO: wire it", "func a() {}"}},
		{ID: "t2", File: "b.go", Line: 9, Tag: "fixme", Text: "nil check", Context: []string{}},
	}
}

func TestScanStore_Snapshots(t *testing.T) {
	ctx := context.Background()

	t.Run("save and read back annotations in order", func(t *testing.T) {
		database := openTestDB(t)
		store := NewScanStore(database)
		p := seedProject(t, database)

		snap, err := store.SaveSnapshot(ctx, p.ID, "main", sampleTasks())
		require.NoError(t, err)
		assert.NotEmpty(t, snap.ID)
		assert.False(t, snap.Accepted)

		got, err := store.Annotations(ctx, snap.ID)
		require.NoError(t, err)
		if d := cmp.Diff(sampleTasks(), got); d != "" {
			t.Errorf("annotations mismatch (-want +got):\n%s", d)
		}
	})

	t.Run("corrupt context is reported", func(t *testing.T) {
		database := openTestDB(t)
		store := NewScanStore(database)
		p := seedProject(t, database)

		snap, err := store.SaveSnapshot(ctx, p.ID, "main", sampleTasks())
		require.NoError(t, err)
		_, err = database.Conn().ExecContext(ctx,
			`UPDATE snapshot_annotations SET context = 'not json' WHERE snapshot_id = ? AND position = 0`, snap.ID)
		require.NoError(t, err)

		_, err = store.Annotations(ctx, snap.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode context lines")
	})

	t.Run("rekey replaces ids by position", func(t *testing.T) {
		database := openTestDB(t)
		store := NewScanStore(database)
		p := seedProject(t, database)

		snap, err := store.SaveSnapshot(ctx, p.ID, "main", sampleTasks())
		require.NoError(t, err)

		require.NoError(t, store.RekeySnapshot(ctx, snap.ID, []string{"ann-1", "t2"}))

		got, err := store.Annotations(ctx, snap.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "ann-1", got[0].ID)
		assert.Equal(t, "wire it", got[0].Text)
		assert.Equal(t, "t2", got[1].ID)

		err = store.RekeySnapshot(ctx, snap.ID, []string{"a", "b", "c"})
		require.ErrorIs(t, err, scan.ErrSnapshotNotFound)

		got, err = store.Annotations(ctx, snap.ID)
		require.NoError(t, err)
		assert.Equal(t, "ann-1", got[0].ID, "failed rekey rolls back")
	})

	t.Run("empty snapshot", func(t *testing.T) {
		database := openTestDB(t)
		store := NewScanStore(database)
		p := seedProject(t, database)

		snap, err := store.SaveSnapshot(ctx, p.ID, "HEAD", nil)
		require.NoError(t, err)

		got, err := store.Annotations(ctx, snap.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("latest accepted", func(t *testing.T) {
		database := openTestDB(t)
		store := NewScanStore(database)
		p := seedProject(t, database)

		_, err := store.LatestAccepted(ctx, p.ID)
		require.ErrorIs(t, err, scan.ErrSnapshotNotFound)

		first, err := store.SaveSnapshot(ctx, p.ID, "main", nil)
		require.NoError(t, err)
		second, err := store.SaveSnapshot(ctx, p.ID, "main", nil)
		require.NoError(t, err)
		_, err = store.SaveSnapshot(ctx, p.ID, "main", nil)
		require.NoError(t, err)

		require.NoError(t, store.SetAccepted(ctx, first.ID, true))
		require.NoError(t, store.SetAccepted(ctx, second.ID, true))

		latest, err := store.LatestAccepted(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
		assert.True(t, latest.Accepted)

		require.NoError(t, store.SetAccepted(ctx, second.ID, false))
		latest, err = store.LatestAccepted(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, latest.ID)
	})

	t.Run("set accepted on missing snapshot", func(t *testing.T) {
		store := NewScanStore(openTestDB(t))
		require.ErrorIs(t, store.SetAccepted(ctx, "missing", true), scan.ErrSnapshotNotFound)
	})
}

func TestScanStore_ChangeSets(t *testing.T) {
	ctx := context.Background()

	results := diff.Generate(nil, sampleTasks())

	t.Run("save pending and get", func(t *testing.T) {
		database := openTestDB(t)
		store := NewScanStore(database)
		p := seedProject(t, database)
		snap, err := store.SaveSnapshot(ctx, p.ID, "main", sampleTasks())
		require.NoError(t, err)

		cs, err := store.SavePending(ctx, p.ID, results, "", snap.ID)
		require.NoError(t, err)
		assert.Equal(t, scan.StatusPending, cs.Status)

		got, err := store.ChangeSet(ctx, cs.ID)
		require.NoError(t, err)
		assert.Equal(t, "", got.OldSnapshotID)
		assert.Equal(t, snap.ID, got.NewSnapshotID)
		assert.Nil(t, got.ResolvedAt)
		if d := cmp.Diff(results, got.Results); d != "" {
			t.Errorf("results mismatch (-want +got):\n%s", d)
		}
	})

	t.Run("supersede leaves one pending", func(t *testing.T) {
		database := openTestDB(t)
		store := NewScanStore(database)
		p := seedProject(t, database)
		snap, err := store.SaveSnapshot(ctx, p.ID, "main", nil)
		require.NoError(t, err)

		first, err := store.SavePending(ctx, p.ID, nil, "", snap.ID)
		require.NoError(t, err)

		n, err := store.SupersedePending(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		second, err := store.SavePending(ctx, p.ID, nil, "", snap.ID)
		require.NoError(t, err)

		pending, err := store.ListChangeSets(ctx, scan.ListFilter{ProjectID: p.ID, Status: scan.StatusPending})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, second.ID, pending[0].ID)

		old, err := store.ChangeSet(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, scan.StatusIgnored, old.Status)
		assert.NotNil(t, old.ResolvedAt)
	})

	t.Run("set status", func(t *testing.T) {
		database := openTestDB(t)
		store := NewScanStore(database)
		p := seedProject(t, database)
		snap, err := store.SaveSnapshot(ctx, p.ID, "main", nil)
		require.NoError(t, err)
		cs, err := store.SavePending(ctx, p.ID, nil, "", snap.ID)
		require.NoError(t, err)

		require.NoError(t, store.SetStatus(ctx, cs.ID, scan.StatusAccepted))

		got, err := store.ChangeSet(ctx, cs.ID)
		require.NoError(t, err)
		assert.Equal(t, scan.StatusAccepted, got.Status)
		assert.NotNil(t, got.ResolvedAt)
		assert.Empty(t, got.Results)

		require.ErrorIs(t, store.SetStatus(ctx, "missing", scan.StatusRejected), scan.ErrChangeSetNotFound)
	})

	t.Run("change-set not found", func(t *testing.T) {
		store := NewScanStore(openTestDB(t))
		_, err := store.ChangeSet(ctx, "missing")
		require.ErrorIs(t, err, scan.ErrChangeSetNotFound)
	})
}
