package db

import (
	"context"
	"database/sql"
)

const projectColumns = `id, name, owner_id, repo_url, default_ref, config, scan_status, created_at, updated_at`

func scanProject(row rowScanner) (Project, error) {
	var p Project
	err := row.Scan(
		&p.ID, &p.Name, &p.OwnerID, &p.RepoURL, &p.DefaultRef,
		&p.Config, &p.ScanStatus, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

type CreateProjectParams struct {
	ID         string
	Name       string
	OwnerID    string
	RepoURL    string
	DefaultRef string
	Config     sql.NullString
	ScanStatus string
	CreatedAt  int64
	UpdatedAt  int64
}

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Name, arg.OwnerID, arg.RepoURL, arg.DefaultRef,
		arg.Config, arg.ScanStatus, arg.CreatedAt, arg.UpdatedAt,
	)
	return err
}

func (q *Queries) GetProject(ctx context.Context, id string) (Project, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

func (q *Queries) ListProjectsByOwner(ctx context.Context, ownerID string) ([]Project, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE owner_id = ?
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProject)
}

type UpdateProjectRepoParams struct {
	RepoURL    string
	DefaultRef string
	UpdatedAt  int64
	ID         string
}

func (q *Queries) UpdateProjectRepo(ctx context.Context, arg UpdateProjectRepoParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE projects SET repo_url = ?, default_ref = ?, updated_at = ?
		WHERE id = ?`,
		arg.RepoURL, arg.DefaultRef, arg.UpdatedAt, arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type UpdateProjectConfigParams struct {
	Config    sql.NullString
	UpdatedAt int64
	ID        string
}

func (q *Queries) UpdateProjectConfig(ctx context.Context, arg UpdateProjectConfigParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE projects SET config = ?, updated_at = ?
		WHERE id = ?`,
		arg.Config, arg.UpdatedAt, arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type BeginProjectScanParams struct {
	StartedAt   int64
	ID          string
	StaleBefore int64
}

// BeginProjectScan takes the scan lock when the project is idle, or when the
// current lock was taken before StaleBefore. Zero rows means the lock is held.
func (q *Queries) BeginProjectScan(ctx context.Context, arg BeginProjectScanParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE projects SET scan_status = 'scanning', scan_started_at = ?1, updated_at = ?1
		WHERE id = ?2 AND (scan_status = 'idle' OR scan_started_at < ?3)`,
		arg.StartedAt, arg.ID, arg.StaleBefore,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type SetProjectScanStatusParams struct {
	ScanStatus string
	UpdatedAt  int64
	ID         string
	FromStatus string
}

// SetProjectScanStatus moves a project from FromStatus to ScanStatus and
// reports how many rows changed. Zero means the project was not in FromStatus.
func (q *Queries) SetProjectScanStatus(ctx context.Context, arg SetProjectScanStatusParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE projects SET scan_status = ?, updated_at = ?
		WHERE id = ? AND scan_status = ?`,
		arg.ScanStatus, arg.UpdatedAt, arg.ID, arg.FromStatus,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
