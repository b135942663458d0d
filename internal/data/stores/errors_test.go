package stores

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasksync/internal/data/db"
)

func TestIsCorruptionError(t *testing.T) {
	assert.False(t, IsCorruptionError(nil))
	assert.False(t, IsCorruptionError(errors.New("no such table: tasks")))
	assert.True(t, IsCorruptionError(fmt.Errorf("open: %w", errors.New("file is not a database"))))
}

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, IsNotFoundError(fmt.Errorf("get: %w", sql.ErrNoRows)))
	assert.False(t, IsNotFoundError(errors.New("boom")))
}

func TestRecoverFromCorruption(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, db.FileName)

	require.NoError(t, os.WriteFile(dbPath, []byte(strings.Repeat("not sqlite ", 64)), 0o644))
	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("stale"), 0o644))

	_, err := db.Open(dir, db.DefaultOpenOptions())
	require.Error(t, err)
	require.True(t, IsCorruptionError(err), err.Error())

	require.NoError(t, RecoverFromCorruption(dir))

	backups, err := filepath.Glob(dbPath + ".corrupt.*")
	require.NoError(t, err)
	assert.Len(t, backups, 2, "database and wal are both moved aside")

	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	require.NoError(t, database.Close())
}

func TestRecoverFromCorruption_NothingToMove(t *testing.T) {
	assert.NoError(t, RecoverFromCorruption(t.TempDir()))
}
