package tasksync

import (
	"context"
	"errors"

	"github.com/colonyops/tasksync/internal/core/scan"
)

// ChangeService answers read queries about change-sets.
type ChangeService struct {
	projects *ProjectService
	scans    scan.Store
}

// NewChangeService creates a ChangeService.
func NewChangeService(projects *ProjectService, scans scan.Store) *ChangeService {
	return &ChangeService{projects: projects, scans: scans}
}

// List returns change-sets of the identity's projects, newest first. An
// empty projectID lists across all of them.
func (s *ChangeService) List(ctx context.Context, identity, projectID string, status scan.Status) ([]scan.ChangeSet, error) {
	if projectID != "" {
		if _, err := s.projects.Get(ctx, identity, projectID); err != nil {
			return nil, err
		}
		return s.scans.ListChangeSets(ctx, scan.ListFilter{ProjectID: projectID, Status: status})
	}

	owned, err := s.projects.List(ctx, identity)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(owned))
	for _, p := range owned {
		ids[p.ID] = true
	}

	all, err := s.scans.ListChangeSets(ctx, scan.ListFilter{Status: status})
	if err != nil {
		return nil, err
	}

	out := make([]scan.ChangeSet, 0, len(all))
	for _, cs := range all {
		if ids[cs.ProjectID] {
			out = append(out, cs)
		}
	}
	return out, nil
}

// Get returns a change-set of one of the identity's projects.
func (s *ChangeService) Get(ctx context.Context, identity, id string) (scan.ChangeSet, error) {
	cs, err := s.scans.ChangeSet(ctx, id)
	if err != nil {
		return scan.ChangeSet{}, err
	}
	if _, err := s.projects.Get(ctx, identity, cs.ProjectID); err != nil {
		if errors.Is(err, ErrAccessDenied) {
			return scan.ChangeSet{}, scan.ErrChangeSetNotFound
		}
		return scan.ChangeSet{}, err
	}
	return cs, nil
}

// Pending returns the project's pending change-set. There is at most one.
// Returns scan.ErrChangeSetNotFound when nothing awaits review.
func (s *ChangeService) Pending(ctx context.Context, identity, projectID string) (scan.ChangeSet, error) {
	list, err := s.List(ctx, identity, projectID, scan.StatusPending)
	if err != nil {
		return scan.ChangeSet{}, err
	}
	if len(list) == 0 {
		return scan.ChangeSet{}, scan.ErrChangeSetNotFound
	}
	return list[0], nil
}
