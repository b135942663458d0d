package tasksync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/tasksync/internal/core/logging"
	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/core/validate"
)

// ProjectService manages projects on behalf of an identity. Every lookup is
// scoped to projects the identity owns.
type ProjectService struct {
	store    project.Store
	defaults project.Config
	log      zerolog.Logger
}

// NewProjectService creates a ProjectService. defaults is reported as the
// effective config of projects that have none stored.
func NewProjectService(store project.Store, defaults project.Config, log zerolog.Logger) *ProjectService {
	return &ProjectService{
		store:    store,
		defaults: defaults,
		log:      logging.Component(log, "projects"),
	}
}

// CreateInput holds the fields of a new project.
type CreateInput struct {
	Name    string
	RepoURL string
	Ref     string
}

// Create registers a project owned by identity.
func (s *ProjectService) Create(ctx context.Context, identity string, in CreateInput) (project.Project, error) {
	if identity == "" {
		return project.Project{}, fmt.Errorf("%w: identity is required", ErrBadRequest)
	}
	if err := validate.NameField("name", in.Name); err != nil {
		return project.Project{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	name := strings.TrimSpace(in.Name)
	if in.RepoURL != "" {
		if _, _, err := project.ParseRepoURL(in.RepoURL); err != nil {
			return project.Project{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
	}

	p := project.Project{
		Name:       name,
		OwnerID:    identity,
		RepoURL:    in.RepoURL,
		DefaultRef: in.Ref,
	}
	if err := s.store.Create(ctx, &p); err != nil {
		return project.Project{}, err
	}

	s.log.Info().Str("project_id", p.ID).Str("name", p.Name).Msg("project created")
	return p, nil
}

// Get returns a project the identity owns.
func (s *ProjectService) Get(ctx context.Context, identity, id string) (project.Project, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return project.Project{}, ErrAccessDenied
		}
		return project.Project{}, err
	}
	if !p.OwnedBy(identity) {
		return project.Project{}, ErrAccessDenied
	}
	return p, nil
}

// List returns the identity's projects.
func (s *ProjectService) List(ctx context.Context, identity string) ([]project.Project, error) {
	return s.store.List(ctx, identity)
}

// LinkRepo sets the repository a project scans.
func (s *ProjectService) LinkRepo(ctx context.Context, identity, id, repoURL, ref string) error {
	if _, _, err := project.ParseRepoURL(repoURL); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if _, err := s.Get(ctx, identity, id); err != nil {
		return err
	}
	return s.store.SetRepo(ctx, id, repoURL, ref)
}

// Config returns the project's stored config and whether the defaults apply
// in its place.
func (s *ProjectService) Config(ctx context.Context, identity, id string) (project.Config, bool, error) {
	if _, err := s.Get(ctx, identity, id); err != nil {
		return project.Config{}, false, err
	}

	cfg, err := s.store.Config(ctx, id)
	if err != nil {
		return project.Config{}, false, err
	}
	if cfg.IsEmpty() {
		return s.defaults.Merge(project.Config{Ignore: cfg.Ignore, IgnoreGlobs: cfg.IgnoreGlobs}), true, nil
	}
	return cfg, false, nil
}

// SetConfig validates and stores a project's tag config.
func (s *ProjectService) SetConfig(ctx context.Context, identity, id string, cfg project.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if _, err := s.Get(ctx, identity, id); err != nil {
		return err
	}
	return s.store.SetConfig(ctx, id, cfg)
}
