package scan

import (
	"context"
	"errors"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/tags"
)

var (
	// ErrSnapshotNotFound is returned when a snapshot does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrChangeSetNotFound is returned when a change-set does not exist.
	ErrChangeSetNotFound = errors.New("change-set not found")
)

// ListFilter controls which change-sets are returned by ListChangeSets.
type ListFilter struct {
	ProjectID string // empty means all projects
	Status    Status // empty means all statuses
}

// Store defines persistence for snapshots and change-sets.
type Store interface {
	// SaveSnapshot stores tasks as a new, not yet accepted snapshot.
	SaveSnapshot(ctx context.Context, projectID, ref string, tasks []tags.ParsedTask) (Snapshot, error)

	// Snapshot returns a snapshot's metadata without its annotations.
	// Returns ErrSnapshotNotFound if missing.
	Snapshot(ctx context.Context, id string) (Snapshot, error)

	// LatestAccepted returns the most recent accepted snapshot for a project.
	// Returns ErrSnapshotNotFound when the project has none.
	LatestAccepted(ctx context.Context, projectID string) (Snapshot, error)

	// Annotations returns the annotations stored with a snapshot in file/line order.
	Annotations(ctx context.Context, snapshotID string) ([]tags.ParsedTask, error)

	// RekeySnapshot replaces the annotation ids of a snapshot. ids[i] is the
	// new id of the annotation saved at position i and must cover every
	// annotation. Returns ErrSnapshotNotFound if a position does not exist.
	RekeySnapshot(ctx context.Context, snapshotID string, ids []string) error

	// SetAccepted flags a snapshot as accepted (or not).
	SetAccepted(ctx context.Context, snapshotID string, accepted bool) error

	// SavePending stores results as a new PENDING change-set.
	SavePending(ctx context.Context, projectID string, results []diff.Result, oldSnapshotID, newSnapshotID string) (ChangeSet, error)

	// SupersedePending marks every PENDING change-set for a project as
	// IGNORED and returns how many were changed.
	SupersedePending(ctx context.Context, projectID string) (int64, error)

	// ChangeSet returns a change-set with its results.
	// Returns ErrChangeSetNotFound if missing.
	ChangeSet(ctx context.Context, id string) (ChangeSet, error)

	// ListChangeSets returns change-sets matching the
	// filter, newest first.
	ListChangeSets(ctx context.Context, filter ListFilter) ([]ChangeSet, error)

	// SetStatus changes a change-set's status and records the resolve time.
	// Returns ErrChangeSetNotFound if missing.
	SetStatus(ctx context.Context, id string, status Status) error
}
