// Package scan defines stored scan snapshots and the change-sets produced by
// diffing two snapshots.
package scan

import (
	"time"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/tags"
)

// Snapshot is an immutable copy of one scan's parse output.
type Snapshot struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id"`
	Ref       string            `json:"ref"`
	Accepted  bool              `json:"accepted"`
	Tasks     []tags.ParsedTask `json:"tasks,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Status is the lifecycle state of a change-set.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusIgnored  Status = "IGNORED"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusIgnored:
		return true
	}
	return false
}

// ChangeSet is the diff produced by one scan, awaiting review.
type ChangeSet struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"project_id"`
	OldSnapshotID string        `json:"old_snapshot_id,omitempty"` // empty when there was no accepted baseline
	NewSnapshotID string        `json:"new_snapshot_id"`
	Status        Status        `json:"status"`
	Results       []diff.Result `json:"results"`
	CreatedAt     time.Time     `json:"created_at"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
}

// Find returns the result with the given id.
func (c ChangeSet) Find(id string) (diff.Result, bool) {
	for _, r := range c.Results {
		if r.ID == id {
			return r, true
		}
	}
	return diff.Result{}, false
}

// Summary counts the change-set's results by type.
func (c ChangeSet) Summary() diff.Summary {
	return diff.Summarize(c.Results)
}
