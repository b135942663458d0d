package db

import (
	"context"
	"database/sql"
)

const annotationColumns = `id, project_id, snapshot_id, tag, text, file, line, context, updated_at`

func scanAnnotation(row rowScanner) (Annotation, error) {
	var a Annotation
	err := row.Scan(
		&a.ID, &a.ProjectID, &a.SnapshotID, &a.Tag, &a.Text,
		&a.File, &a.Line, &a.Context, &a.UpdatedAt,
	)
	return a, err
}

func (q *Queries) UpsertAnnotation(ctx context.Context, arg Annotation) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO annotations (`+annotationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			snapshot_id = excluded.snapshot_id,
			tag = excluded.tag,
			text = excluded.text,
			file = excluded.file,
			line = excluded.line,
			context = excluded.context,
			updated_at = excluded.updated_at`,
		arg.ID, arg.ProjectID, arg.SnapshotID, arg.Tag, arg.Text,
		arg.File, arg.Line, arg.Context, arg.UpdatedAt,
	)
	return err
}

func (q *Queries) GetAnnotation(ctx context.Context, id string) (Annotation, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+annotationColumns+` FROM annotations WHERE id = ?`, id)
	return scanAnnotation(row)
}

func (q *Queries) DeleteAnnotation(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM annotations WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListAnnotationsByProject(ctx context.Context, projectID string) ([]Annotation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+annotationColumns+` FROM annotations
		WHERE project_id = ?
		ORDER BY file, line`, projectID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAnnotation)
}

const taskColumns = `id, project_id, owner_id, title, visibility, progress, annotation_id, created_at, updated_at`

func scanTask(row rowScanner) (Task, error) {
	var t Task
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.OwnerID, &t.Title, &t.Visibility,
		&t.Progress, &t.AnnotationID, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func (q *Queries) CreateTask(ctx context.Context, arg Task) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.ProjectID, arg.OwnerID, arg.Title, arg.Visibility,
		arg.Progress, arg.AnnotationID, arg.CreatedAt, arg.UpdatedAt,
	)
	return err
}

func (q *Queries) GetTask(ctx context.Context, id string) (Task, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (q *Queries) GetTaskByAnnotation(ctx context.Context, annotationID string) (Task, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE annotation_id = ?
		ORDER BY created_at
		LIMIT 1`, annotationID)
	return scanTask(row)
}

type ListTasksParams struct {
	ProjectID      string
	OwnerID        string
	IncludeDeleted bool
}

// ListTasks filters on project and owner; empty parameters match all.
func (q *Queries) ListTasks(ctx context.Context, arg ListTasksParams) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE (? = '' OR project_id = ?)
		  AND (? = '' OR owner_id = ?)
		  AND (? OR visibility != 'DELETED')
		ORDER BY created_at, rowid`,
		arg.ProjectID, arg.ProjectID, arg.OwnerID, arg.OwnerID, arg.IncludeDeleted,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTask)
}

type SetTaskAnnotationParams struct {
	AnnotationID sql.NullString
	UpdatedAt    int64
	ID           string
}

func (q *Queries) SetTaskAnnotation(ctx context.Context, arg SetTaskAnnotationParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE tasks SET annotation_id = ?, updated_at = ? WHERE id = ?`,
		arg.AnnotationID, arg.UpdatedAt, arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type SetTaskVisibilityParams struct {
	Visibility string
	UpdatedAt  int64
	ID         string
}

func (q *Queries) SetTaskVisibility(ctx context.Context, arg SetTaskVisibilityParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE tasks SET visibility = ?, updated_at = ? WHERE id = ?`,
		arg.Visibility, arg.UpdatedAt, arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type SetTaskProgressParams struct {
	Progress  string
	UpdatedAt int64
	ID        string
}

func (q *Queries) SetTaskProgress(ctx context.Context, arg SetTaskProgressParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE tasks SET progress = ?, updated_at = ? WHERE id = ?`,
		arg.Progress, arg.UpdatedAt, arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const tagColumns = `id, owner_id, name, active, created_at`

func scanTag(row rowScanner) (Tag, error) {
	var t Tag
	err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Active, &t.CreatedAt)
	return t, err
}

func (q *Queries) CreateTag(ctx context.Context, arg Tag) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tags (`+tagColumns+`) VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.OwnerID, arg.Name, arg.Active, arg.CreatedAt,
	)
	return err
}

type FindActiveTagParams struct {
	OwnerID string
	Name    string
}

func (q *Queries) FindActiveTag(ctx context.Context, arg FindActiveTagParams) (Tag, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE owner_id = ? AND name = ? AND active = 1
		LIMIT 1`, arg.OwnerID, arg.Name)
	return scanTag(row)
}

func (q *Queries) ListTagsByOwner(ctx context.Context, ownerID string) ([]Tag, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE owner_id = ?
		ORDER BY name`, ownerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTag)
}

type LinkTaskTagParams struct {
	TaskID string
	TagID  string
}

func (q *Queries) LinkTaskTag(ctx context.Context, arg LinkTaskTagParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?)
		ON CONFLICT(task_id, tag_id) DO NOTHING`,
		arg.TaskID, arg.TagID,
	)
	return err
}

func (q *Queries) ListTaskTags(ctx context.Context, taskID string) ([]Tag, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.id, t.owner_id, t.name, t.active, t.created_at
		FROM tags t
		JOIN task_tags tt ON tt.tag_id = t.id
		WHERE tt.task_id = ?
		ORDER BY t.name`, taskID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTag)
}

func (q *Queries) InsertTaskHistory(ctx context.Context, arg TaskHistory) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO task_history (id, task_id, action, actor, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.TaskID, arg.Action, arg.Actor, arg.Detail, arg.CreatedAt,
	)
	return err
}

func (q *Queries) ListTaskHistory(ctx context.Context, taskID string) ([]TaskHistory, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, task_id, action, actor, detail, created_at
		FROM task_history
		WHERE task_id = ?
		ORDER BY created_at, rowid`, taskID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row rowScanner) (TaskHistory, error) {
		var h TaskHistory
		err := row.Scan(&h.ID, &h.TaskID, &h.Action, &h.Actor, &h.Detail, &h.CreatedAt)
		return h, err
	})
}
