package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/data/db"
	"github.com/colonyops/tasksync/pkg/randid"
)

// DefaultScanLease is how long a scan lock is trusted. It is far longer than
// any real scan, which is bounded by the remote API's rate limit.
const DefaultScanLease = 30 * time.Minute

// ProjectStore implements project.Store using SQLite.
type ProjectStore struct {
	base
	lease time.Duration
}

var _ project.Store = (*ProjectStore)(nil)

// NewProjectStore creates a new SQLite-backed project store.
func NewProjectStore(db *db.DB) *ProjectStore {
	return &ProjectStore{base: base{db: db}, lease: DefaultScanLease}
}

// Create persists p, filling in the ID, scan status and timestamps when unset.
func (s *ProjectStore) Create(ctx context.Context, p *project.Project) error {
	if p.ID == "" {
		p.ID = randid.Generate(8)
	}
	if p.ScanStatus == "" {
		p.ScanStatus = project.ScanIdle
	}

	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	err := s.q().CreateProject(ctx, db.CreateProjectParams{
		ID:         p.ID,
		Name:       p.Name,
		OwnerID:    p.OwnerID,
		RepoURL:    p.RepoURL,
		DefaultRef: p.DefaultRef,
		ScanStatus: string(p.ScanStatus),
		CreatedAt:  nanos(p.CreatedAt),
		UpdatedAt:  nanos(p.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// Get returns a single project by ID.
func (s *ProjectStore) Get(ctx context.Context, id string) (project.Project, error) {
	row, err := s.q().GetProject(ctx, id)
	if err != nil {
		if IsNotFoundError(err) {
			return project.Project{}, project.ErrNotFound
		}
		return project.Project{}, fmt.Errorf("get project: %w", err)
	}
	return rowToProject(row), nil
}

// List returns the projects owned by ownerID, newest first.
func (s *ProjectStore) List(ctx context.Context, ownerID string) ([]project.Project, error) {
	rows, err := s.q().ListProjectsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]project.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, rowToProject(row))
	}
	return projects, nil
}

// SetRepo links a project to a repository.
func (s *ProjectStore) SetRepo(ctx context.Context, id, repoURL, ref string) error {
	n, err := s.q().UpdateProjectRepo(ctx, db.UpdateProjectRepoParams{
		RepoURL:    repoURL,
		DefaultRef: ref,
		UpdatedAt:  nanos(time.Now()),
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("set project repo: %w", err)
	}
	if n == 0 {
		return project.ErrNotFound
	}
	return nil
}

// Config decodes the project's stored scan config.
func (s *ProjectStore) Config(ctx context.Context, id string) (project.Config, error) {
	row, err := s.q().GetProject(ctx, id)
	if err != nil {
		if IsNotFoundError(err) {
			return project.Config{}, project.ErrNotFound
		}
		return project.Config{}, fmt.Errorf("get project config: %w", err)
	}

	if !row.Config.Valid || row.Config.String == "" {
		return project.Config{}, nil
	}

	var cfg project.Config
	if err := json.Unmarshal([]byte(row.Config.String), &cfg); err != nil {
		return project.Config{}, fmt.Errorf("%w: %w", project.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// SetConfig replaces the project's stored scan config.
func (s *ProjectStore) SetConfig(ctx context.Context, id string, cfg project.Config) error {
	bits, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode project config: %w", err)
	}

	n, err := s.q().UpdateProjectConfig(ctx, db.UpdateProjectConfigParams{
		Config:    toNullString(string(bits)),
		UpdatedAt: nanos(time.Now()),
		ID:        id,
	})
	if err != nil {
		return fmt.Errorf("set project config: %w", err)
	}
	if n == 0 {
		return project.ErrNotFound
	}
	return nil
}

// WithScanLease sets how long a scan lock is honored before BeginScan may
// take it over. Values below one minute are ignored.
func (s *ProjectStore) WithScanLease(lease time.Duration) *ProjectStore {
	if lease >= time.Minute {
		s.lease = lease
	}
	return s
}

// BeginScan moves the project from idle to scanning with a conditional
// update so that two callers cannot both win. A lock held longer than the
// lease belongs to a process that died mid-scan and is taken over.
func (s *ProjectStore) BeginScan(ctx context.Context, id string) error {
	now := time.Now()
	n, err := s.q().BeginProjectScan(ctx, db.BeginProjectScanParams{
		StartedAt:   nanos(now),
		ID:          id,
		StaleBefore: nanos(now.Add(-s.lease)),
	})
	if err != nil {
		if IsBusyError(err) {
			return project.ErrScanInFlight
		}
		return fmt.Errorf("begin scan: %w", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return project.ErrScanInFlight
}

// EndScan returns the project to idle.
func (s *ProjectStore) EndScan(ctx context.Context, id string) error {
	_, err := s.q().SetProjectScanStatus(ctx, db.SetProjectScanStatusParams{
		ScanStatus: string(project.ScanIdle),
		UpdatedAt:  nanos(time.Now()),
		ID:         id,
		FromStatus: string(project.ScanScanning),
	})
	if err != nil {
		return fmt.Errorf("end scan: %w", err)
	}
	return nil
}

func rowToProject(row db.Project) project.Project {
	return project.Project{
		ID:         row.ID,
		Name:       row.Name,
		OwnerID:    row.OwnerID,
		RepoURL:    row.RepoURL,
		DefaultRef: row.DefaultRef,
		ScanStatus: project.ScanStatus(row.ScanStatus),
		CreatedAt:  fromNanos(row.CreatedAt),
		UpdatedAt:  fromNanos(row.UpdatedAt),
	}
}
