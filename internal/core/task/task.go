// Package task defines durable task records, the live annotations they are
// linked to, tag links and the task history log.
package task

import "time"

// Visibility controls whether a task is shown.
type Visibility string

const (
	VisibilityVisible Visibility = "VISIBLE"
	VisibilityDeleted Visibility = "DELETED"
)

// Progress is the work state of a task.
type Progress string

const (
	ProgressNotStarted Progress = "NOT_STARTED"
	ProgressInProgress Progress = "IN_PROGRESS"
	ProgressCompleted  Progress = "COMPLETED"
)

// IsValid reports whether p is a known progress value.
func (p Progress) IsValid() bool {
	switch p {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted:
		return true
	}
	return false
}

// Task is a durable work item, optionally linked to a live annotation.
type Task struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	OwnerID      string     `json:"owner_id"`
	Title        string     `json:"title"`
	Visibility   Visibility `json:"visibility"`
	Progress     Progress   `json:"progress"`
	AnnotationID string     `json:"annotation_id,omitempty"` // empty when not linked
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Linked reports whether the task is attached to a live annotation.
func (t Task) Linked() bool {
	return t.AnnotationID != ""
}

// Annotation is where an accepted annotation currently lives in the
// repository. ID matches the diff result id it was last confirmed with.
type Annotation struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	SnapshotID string    `json:"snapshot_id"`
	Tag        string    `json:"tag"`
	Text       string    `json:"text"`
	File       string    `json:"file"`
	Line       int       `json:"line"`
	Context    []string  `json:"context"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tag is a label an identity can attach to tasks.
type Tag struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryAction classifies a history entry.
type HistoryAction string

const (
	HistoryCreate HistoryAction = "CREATE_TASK"
	HistoryUpdate HistoryAction = "UPDATE_TASK"
	HistoryDelete HistoryAction = "DELETE_TASK"
)

// HistoryEntry is one append-only record of a task mutation.
type HistoryEntry struct {
	ID        string        `json:"id"`
	TaskID    string        `json:"task_id"`
	Action    HistoryAction `json:"action"`
	Actor     string        `json:"actor"`
	Detail    string        `json:"detail,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
