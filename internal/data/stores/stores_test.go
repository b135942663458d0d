package stores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/data/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func seedProject(t *testing.T, database *db.DB) project.Project {
	t.Helper()
	p := project.Project{Name: "demo", OwnerID: "alice", RepoURL: "https://github.com/acme/demo"}
	require.NoError(t, NewProjectStore(database).Create(context.Background(), &p))
	return p
}
