package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/tasksync/internal/core/task"
	"github.com/colonyops/tasksync/internal/data/db"
	"github.com/colonyops/tasksync/pkg/randid"
)

// TaskStore implements task.Store using SQLite.
type TaskStore struct {
	base
}

var _ task.Store = (*TaskStore)(nil)

// NewTaskStore creates a new SQLite-backed task store.
func NewTaskStore(db *db.DB) *TaskStore {
	return &TaskStore{base: base{db: db}}
}

// UpsertAnnotation creates or replaces a live annotation.
func (s *TaskStore) UpsertAnnotation(ctx context.Context, a task.Annotation) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}

	err := s.q().UpsertAnnotation(ctx, db.Annotation{
		ID:         a.ID,
		ProjectID:  a.ProjectID,
		SnapshotID: a.SnapshotID,
		Tag:        a.Tag,
		Text:       a.Text,
		File:       a.File,
		Line:       int64(a.Line),
		Context:    encodeLines(a.Context),
		UpdatedAt:  nanos(a.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("upsert annotation: %w", err)
	}
	return nil
}

// Annotation returns a live annotation by ID.
func (s *TaskStore) Annotation(ctx context.Context, id string) (task.Annotation, error) {
	row, err := s.q().GetAnnotation(ctx, id)
	if err != nil {
		if IsNotFoundError(err) {
			return task.Annotation{}, task.ErrAnnotationNotFound
		}
		return task.Annotation{}, fmt.Errorf("get annotation: %w", err)
	}
	return rowToAnnotation(row)
}

// DeleteAnnotation removes a live annotation row.
func (s *TaskStore) DeleteAnnotation(ctx context.Context, id string) error {
	if _, err := s.q().DeleteAnnotation(ctx, id); err != nil {
		return fmt.Errorf("delete annotation: %w", err)
	}
	return nil
}

// ListAnnotations returns a project's live annotations.
func (s *TaskStore) ListAnnotations(ctx context.Context, projectID string) ([]task.Annotation, error) {
	rows, err := s.q().ListAnnotationsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}

	out := make([]task.Annotation, 0, len(rows))
	for _, row := range rows {
		a, err := rowToAnnotation(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Create persists a new task. Generates an ID if not set and defaults the
// visibility and progress.
func (s *TaskStore) Create(ctx context.Context, t *task.Task) error {
	if t.ID == "" {
		t.ID = randid.Generate(10)
	}
	if t.Visibility == "" {
		t.Visibility = task.VisibilityVisible
	}
	if t.Progress == "" {
		t.Progress = task.ProgressNotStarted
	}

	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	err := s.q().CreateTask(ctx, db.Task{
		ID:           t.ID,
		ProjectID:    t.ProjectID,
		OwnerID:      t.OwnerID,
		Title:        t.Title,
		Visibility:   string(t.Visibility),
		Progress:     string(t.Progress),
		AnnotationID: toNullString(t.AnnotationID),
		CreatedAt:    nanos(t.CreatedAt),
		UpdatedAt:    nanos(t.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Get returns a single task by ID.
func (s *TaskStore) Get(ctx context.Context, id string) (task.Task, error) {
	row, err := s.q().GetTask(ctx, id)
	if err != nil {
		if IsNotFoundError(err) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, fmt.Errorf("get task: %w", err)
	}
	return rowToTask(row), nil
}

// ForAnnotation returns the task linked to a live annotation.
func (s *TaskStore) ForAnnotation(ctx context.Context, annotationID string) (task.Task, error) {
	row, err := s.q().GetTaskByAnnotation(ctx, annotationID)
	if err != nil {
		if IsNotFoundError(err) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, fmt.Errorf("get task for annotation: %w", err)
	}
	return rowToTask(row), nil
}

// List returns tasks matching the filter, oldest first.
func (s *TaskStore) List(ctx context.Context, filter task.ListFilter) ([]task.Task, error) {
	rows, err := s.q().ListTasks(ctx, db.ListTasksParams{
		ProjectID:      filter.ProjectID,
		OwnerID:        filter.OwnerID,
		IncludeDeleted: filter.IncludeDeleted,
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	out := make([]task.Task, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToTask(row))
	}
	return out, nil
}

// SetAnnotation links a task to an annotation; an empty id clears the link.
func (s *TaskStore) SetAnnotation(ctx context.Context, taskID, annotationID string) error {
	n, err := s.q().SetTaskAnnotation(ctx, db.SetTaskAnnotationParams{
		AnnotationID: toNullString(annotationID),
		UpdatedAt:    nanos(time.Now()),
		ID:           taskID,
	})
	if err != nil {
		return fmt.Errorf("set task annotation: %w", err)
	}
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}

// SetVisibility changes a task's visibility.
func (s *TaskStore) SetVisibility(ctx context.Context, taskID string, v task.Visibility) error {
	n, err := s.q().SetTaskVisibility(ctx, db.SetTaskVisibilityParams{
		Visibility: string(v),
		UpdatedAt:  nanos(time.Now()),
		ID:         taskID,
	})
	if err != nil {
		return fmt.Errorf("set task visibility: %w", err)
	}
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}

// SetProgress changes a task's progress.
func (s *TaskStore) SetProgress(ctx context.Context, taskID string, p task.Progress) error {
	n, err := s.q().SetTaskProgress(ctx, db.SetTaskProgressParams{
		Progress:  string(p),
		UpdatedAt: nanos(time.Now()),
		ID:        taskID,
	})
	if err != nil {
		return fmt.Errorf("set task progress: %w", err)
	}
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}

// CreateTag persists a new active tag.
func (s *TaskStore) CreateTag(ctx context.Context, t *task.Tag) error {
	if t.ID == "" {
		t.ID = randid.Generate(8)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Active = true

	err := s.q().CreateTag(ctx, db.Tag{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		Name:      t.Name,
		Active:    t.Active,
		CreatedAt: nanos(t.CreatedAt),
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("create tag %q: %w", t.Name, task.ErrTagExists)
		}
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// FindTag returns the owner's active tag called name.
func (s *TaskStore) FindTag(ctx context.Context, ownerID, name string) (task.Tag, error) {
	row, err := s.q().FindActiveTag(ctx, db.FindActiveTagParams{OwnerID: ownerID, Name: name})
	if err != nil {
		if IsNotFoundError(err) {
			return task.Tag{}, task.ErrTagNotFound
		}
		return task.Tag{}, fmt.Errorf("find tag: %w", err)
	}
	return rowToTag(row), nil
}

// ListTags returns the owner's tags.
func (s *TaskStore) ListTags(ctx context.Context, ownerID string) ([]task.Tag, error) {
	rows, err := s.q().ListTagsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	out := make([]task.Tag, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToTag(row))
	}
	return out, nil
}

// LinkTag associates a tag with a task.
func (s *TaskStore) LinkTag(ctx context.Context, taskID, tagID string) error {
	if err := s.q().LinkTaskTag(ctx, db.LinkTaskTagParams{TaskID: taskID, TagID: tagID}); err != nil {
		return fmt.Errorf("link tag: %w", err)
	}
	return nil
}

// TaskTags returns the tags linked to a task.
func (s *TaskStore) TaskTags(ctx context.Context, taskID string) ([]task.Tag, error) {
	rows, err := s.q().ListTaskTags(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task tags: %w", err)
	}

	out := make([]task.Tag, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToTag(row))
	}
	return out, nil
}

// AppendHistory records one history entry.
func (s *TaskStore) AppendHistory(ctx context.Context, e task.HistoryEntry) error {
	if e.ID == "" {
		e.ID = randid.Generate(12)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	err := s.q().InsertTaskHistory(ctx, db.TaskHistory{
		ID:        e.ID,
		TaskID:    e.TaskID,
		Action:    string(e.Action),
		Actor:     e.Actor,
		Detail:    e.Detail,
		CreatedAt: nanos(e.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("append task history: %w", err)
	}
	return nil
}

// History returns a task's history oldest first.
func (s *TaskStore) History(ctx context.Context, taskID string) ([]task.HistoryEntry, error) {
	rows, err := s.q().ListTaskHistory(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task history: %w", err)
	}

	out := make([]task.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, task.HistoryEntry{
			ID:        row.ID,
			TaskID:    row.TaskID,
			Action:    task.HistoryAction(row.Action),
			Actor:     row.Actor,
			Detail:    row.Detail,
			CreatedAt: fromNanos(row.CreatedAt),
		})
	}
	return out, nil
}

func rowToAnnotation(row db.Annotation) (task.Annotation, error) {
	lines, err := decodeLines(row.Context)
	if err != nil {
		return task.Annotation{}, fmt.Errorf("annotation %s: %w", row.ID, err)
	}
	return task.Annotation{
		ID:         row.ID,
		ProjectID:  row.ProjectID,
		SnapshotID: row.SnapshotID,
		Tag:        row.Tag,
		Text:       row.Text,
		File:       row.File,
		Line:       int(row.Line),
		Context:    lines,
		UpdatedAt:  fromNanos(row.UpdatedAt),
	}, nil
}

func rowToTask(row db.Task) task.Task {
	return task.Task{
		ID:           row.ID,
		ProjectID:    row.ProjectID,
		OwnerID:      row.OwnerID,
		Title:        row.Title,
		Visibility:   task.Visibility(row.Visibility),
		Progress:     task.Progress(row.Progress),
		AnnotationID: fromNullString(row.AnnotationID),
		CreatedAt:    fromNanos(row.CreatedAt),
		UpdatedAt:    fromNanos(row.UpdatedAt),
	}
}

func rowToTag(row db.Tag) task.Tag {
	return task.Tag{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Name:      row.Name,
		Active:    row.Active,
		CreatedAt: fromNanos(row.CreatedAt),
	}
}
