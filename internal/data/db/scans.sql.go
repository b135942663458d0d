package db

import (
	"context"
	"database/sql"
)

const snapshotColumns = `id, project_id, ref, accepted, created_at`

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var s Snapshot
	err := row.Scan(&s.ID, &s.ProjectID, &s.Ref, &s.Accepted, &s.CreatedAt)
	return s, err
}

type CreateSnapshotParams struct {
	ID        string
	ProjectID string
	Ref       string
	CreatedAt int64
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, project_id, ref, accepted, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		arg.ID, arg.ProjectID, arg.Ref, arg.CreatedAt,
	)
	return err
}

func (q *Queries) InsertSnapshotAnnotation(ctx context.Context, arg SnapshotAnnotation) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO snapshot_annotations (snapshot_id, position, id, file, line, tag, text, context)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.SnapshotID, arg.Position, arg.ID, arg.File, arg.Line, arg.Tag, arg.Text, arg.Context,
	)
	return err
}

type SetSnapshotAnnotationIDParams struct {
	ID         string
	SnapshotID string
	Position   int64
}

func (q *Queries) SetSnapshotAnnotationID(ctx context.Context, arg SetSnapshotAnnotationIDParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE snapshot_annotations SET id = ?
		WHERE snapshot_id = ? AND position = ?`,
		arg.ID, arg.SnapshotID, arg.Position,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetSnapshot(ctx context.Context, id string) (Snapshot, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, id)
	return scanSnapshot(row)
}

func (q *Queries) GetLatestAcceptedSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+` FROM snapshots
		WHERE project_id = ? AND accepted = 1
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, projectID)
	return scanSnapshot(row)
}

func (q *Queries) ListSnapshotAnnotations(ctx context.Context, snapshotID string) ([]SnapshotAnnotation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT snapshot_id, position, id, file, line, tag, text, context
		FROM snapshot_annotations
		WHERE snapshot_id = ?
		ORDER BY position`, snapshotID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row rowScanner) (SnapshotAnnotation, error) {
		var a SnapshotAnnotation
		err := row.Scan(&a.SnapshotID, &a.Position, &a.ID, &a.File, &a.Line, &a.Tag, &a.Text, &a.Context)
		return a, err
	})
}

type SetSnapshotAcceptedParams struct {
	Accepted bool
	ID       string
}

func (q *Queries) SetSnapshotAccepted(ctx context.Context, arg SetSnapshotAcceptedParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE snapshots SET accepted = ? WHERE id = ?`, arg.Accepted, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const changeSetColumns = `id, project_id, old_snapshot_id, new_snapshot_id, status, results, created_at, resolved_at`

func scanChangeSet(row rowScanner) (ChangeSet, error) {
	var c ChangeSet
	err := row.Scan(
		&c.ID, &c.ProjectID, &c.OldSnapshotID, &c.NewSnapshotID,
		&c.Status, &c.Results, &c.CreatedAt, &c.ResolvedAt,
	)
	return c, err
}

type CreateChangeSetParams struct {
	ID            string
	ProjectID     string
	OldSnapshotID sql.NullString
	NewSnapshotID string
	Status        string
	Results       string
	CreatedAt     int64
}

func (q *Queries) CreateChangeSet(ctx context.Context, arg CreateChangeSetParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO change_sets (id, project_id, old_snapshot_id, new_snapshot_id, status, results, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.ProjectID, arg.OldSnapshotID, arg.NewSnapshotID, arg.Status, arg.Results, arg.CreatedAt,
	)
	return err
}

func (q *Queries) GetChangeSet(ctx context.Context, id string) (ChangeSet, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+changeSetColumns+` FROM change_sets WHERE id = ?`, id)
	return scanChangeSet(row)
}

type ListChangeSetsParams struct {
	ProjectID string
	Status    string
}

// ListChangeSets filters on project and status; empty parameters match all.
func (q *Queries) ListChangeSets(ctx context.Context, arg ListChangeSetsParams) ([]ChangeSet, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+changeSetColumns+` FROM change_sets
		WHERE (? = '' OR project_id = ?)
		  AND (? = '' OR status = ?)
		ORDER BY created_at DESC, rowid DESC`,
		arg.ProjectID, arg.ProjectID, arg.Status, arg.Status,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanChangeSet)
}

type SupersedePendingChangeSetsParams struct {
	ResolvedAt int64
	ProjectID  string
}

func (q *Queries) SupersedePendingChangeSets(ctx context.Context, arg SupersedePendingChangeSetsParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE change_sets SET status = 'IGNORED', resolved_at = ?
		WHERE project_id = ? AND status = 'PENDING'`,
		arg.ResolvedAt, arg.ProjectID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type UpdateChangeSetStatusParams struct {
	Status     string
	ResolvedAt sql.NullInt64
	ID         string
}

func (q *Queries) UpdateChangeSetStatus(ctx context.Context, arg UpdateChangeSetStatusParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE change_sets SET status = ?, resolved_at = ?
		WHERE id = ?`,
		arg.Status, arg.ResolvedAt, arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
