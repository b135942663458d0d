// Package eventbus provides a typed publish/subscribe event bus for
// cross-component communication within tasksync.
package eventbus

import (
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/task"
)

// Events defines all event types and their payload structs.
var Events = map[string]any{
	// Keep list sorted A-Z
	"changeset.created":  ChangeSetCreatedPayload{},
	"changeset.resolved": ChangeSetResolvedPayload{},
	"scan.completed":     ScanCompletedPayload{},
	"task.created":       TaskCreatedPayload{},
}

// ScanCompletedPayload is emitted when a scan has stored its snapshot.
type ScanCompletedPayload struct {
	ProjectID  string
	SnapshotID string
	Ref        string
	Files      int
	Tasks      int
}

// ChangeSetCreatedPayload is emitted when a scan stores a new PENDING change-set.
type ChangeSetCreatedPayload struct {
	ChangeSet  *scan.ChangeSet
	Superseded int64
}

// ChangeSetResolvedPayload is emitted when a change-set is accepted or rejected.
type ChangeSetResolvedPayload struct {
	ChangeSet *scan.ChangeSet
	Approved  bool
	Applied   int
}

// TaskCreatedPayload is emitted when resolving a change-set creates a task.
type TaskCreatedPayload struct {
	Task *task.Task
}
