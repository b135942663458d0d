package project

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a project does not exist.
	ErrNotFound = errors.New("project not found")
	// ErrScanInFlight is returned when a scan is already running for a project.
	ErrScanInFlight = errors.New("scan already in progress")
	// ErrInvalidConfig is returned when a stored project config cannot be decoded.
	ErrInvalidConfig = errors.New("invalid project config")
)

// Store defines persistence for projects and their scan configuration.
type Store interface {
	// Create persists a new project. ID, ScanStatus and timestamps are
	// populated when unset.
	Create(ctx context.Context, p *Project) error

	// Get returns a project by ID. Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (Project, error)

	// List returns projects owned by ownerID, newest first.
	List(ctx context.Context, ownerID string) ([]Project, error)

	// SetRepo links the project to a repository URL and default ref.
	SetRepo(ctx context.Context, id, repoURL, ref string) error

	// Config returns the stored config. A project without a stored config
	// returns an empty Config. Returns ErrInvalidConfig when the stored value
	// cannot be decoded.
	Config(ctx context.Context, id string) (Config, error)

	// SetConfig replaces the stored config.
	SetConfig(ctx context.Context, id string, cfg Config) error

	// BeginScan atomically moves the project from idle to scanning.
	// Returns ErrScanInFlight if a scan is already running.
	BeginScan(ctx context.Context, id string) error

	// EndScan returns the project to idle.
	EndScan(ctx context.Context, id string) error
}
