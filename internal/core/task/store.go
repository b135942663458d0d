package task

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a task does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrAnnotationNotFound is returned when a live annotation does not exist.
	ErrAnnotationNotFound = errors.New("annotation not found")
	// ErrTagNotFound is returned when no active tag matches a name.
	ErrTagNotFound = errors.New("tag not found")
	// ErrTagExists is returned when the owner already has a tag with the name.
	ErrTagExists = errors.New("tag already exists")
)

// ListFilter controls which tasks are returned by List.
type ListFilter struct {
	ProjectID      string // empty means all projects
	OwnerID        string // empty means all owners
	IncludeDeleted bool
}

// Store defines persistence for tasks, live annotations, tags and history.
type Store interface {
	// UpsertAnnotation creates or replaces a live annotation by ID.
	UpsertAnnotation(ctx context.Context, a Annotation) error
	// Annotation returns a live annotation. Returns ErrAnnotationNotFound if missing.
	Annotation(ctx context.Context, id string) (Annotation, error)
	// DeleteAnnotation removes a live annotation row. Missing rows are not an error.
	DeleteAnnotation(ctx context.Context, id string) error
	// ListAnnotations returns a project's live annotations ordered by file and line.
	ListAnnotations(ctx context.Context, projectID string) ([]Annotation, error)

	// Create persists a new task, populating ID, defaults and timestamps.
	Create(ctx context.Context, t *Task) error
	// Get returns a task. Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (Task, error)
	// ForAnnotation returns the task linked to an annotation.
	// Returns ErrNotFound if no task is linked.
	ForAnnotation(ctx context.Context, annotationID string) (Task, error)
	// List returns tasks matching the filter, oldest first.
	List(ctx context.Context, filter ListFilter) ([]Task, error)
	// SetAnnotation links a task to an annotation; an empty id clears the link.
	SetAnnotation(ctx context.Context, taskID, annotationID string) error
	// SetVisibility changes a task's visibility.
	SetVisibility(ctx context.Context, taskID string, v Visibility) error
	// SetProgress changes a task's progress.
	SetProgress(ctx context.Context, taskID string, p Progress) error

	// CreateTag persists a new tag.
	CreateTag(ctx context.Context, t *Tag) error
	// FindTag returns the owner's active tag with the given name.
	// Returns ErrTagNotFound if none.
	FindTag(ctx context.Context, ownerID, name string) (Tag, error)
	// ListTags returns the owner's tags ordered by name.
	ListTags(ctx context.Context, ownerID string) ([]Tag, error)
	// LinkTag associates a tag with a task. Linking twice is a no-op.
	LinkTag(ctx context.Context, taskID, tagID string) error
	// TaskTags returns the tags linked to a task.
	TaskTags(ctx context.Context, taskID string) ([]Tag, error)

	// AppendHistory records a history entry, populating ID and timestamp.
	AppendHistory(ctx context.Context, e HistoryEntry) error
	// History returns a task's history oldest first.
	History(ctx context.Context, taskID string) ([]HistoryEntry, error)
}
