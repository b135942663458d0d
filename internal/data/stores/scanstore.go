package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/tags"
	"github.com/colonyops/tasksync/internal/data/db"
)

// ScanStore implements scan.Store using SQLite.
type ScanStore struct {
	base
}

var _ scan.Store = (*ScanStore)(nil)

// NewScanStore creates a new SQLite-backed snapshot and change-set store.
func NewScanStore(db *db.DB) *ScanStore {
	return &ScanStore{base: base{db: db}}
}

// SaveSnapshot writes the snapshot row and all of its annotations in one
// transaction. The snapshot starts out not accepted.
func (s *ScanStore) SaveSnapshot(ctx context.Context, projectID, ref string, tasks []tags.ParsedTask) (scan.Snapshot, error) {
	snap := scan.Snapshot{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Ref:       ref,
		Tasks:     tasks,
		CreatedAt: time.Now(),
	}

	err := s.atomic(ctx, func(q *db.Queries) error {
		if err := q.CreateSnapshot(ctx, db.CreateSnapshotParams{
			ID:        snap.ID,
			ProjectID: projectID,
			Ref:       ref,
			CreatedAt: nanos(snap.CreatedAt),
		}); err != nil {
			return err
		}

		for i, t := range tasks {
			if err := q.InsertSnapshotAnnotation(ctx, db.SnapshotAnnotation{
				SnapshotID: snap.ID,
				Position:   int64(i),
				ID:         t.ID,
				File:       t.File,
				Line:       int64(t.Line),
				Tag:        t.Tag,
				Text:       t.Text,
				Context:    encodeLines(t.Context),
			}); err != nil {
				return fmt.Errorf("annotation %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return scan.Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}

	return snap, nil
}

// Snapshot returns a snapshot's metadata.
func (s *ScanStore) Snapshot(ctx context.Context, id string) (scan.Snapshot, error) {
	row, err := s.q().GetSnapshot(ctx, id)
	if err != nil {
		if IsNotFoundError(err) {
			return scan.Snapshot{}, scan.ErrSnapshotNotFound
		}
		return scan.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return rowToSnapshot(row), nil
}

// LatestAccepted returns the newest accepted snapshot for a project.
func (s *ScanStore) LatestAccepted(ctx context.Context, projectID string) (scan.Snapshot, error) {
	row, err := s.q().GetLatestAcceptedSnapshot(ctx, projectID)
	if err != nil {
		if IsNotFoundError(err) {
			return scan.Snapshot{}, scan.ErrSnapshotNotFound
		}
		return scan.Snapshot{}, fmt.Errorf("get latest accepted snapshot: %w", err)
	}
	return rowToSnapshot(row), nil
}

// Annotations returns the parse output stored with a snapshot, in the order
// it was saved.
func (s *ScanStore) Annotations(ctx context.Context, snapshotID string) ([]tags.ParsedTask, error) {
	rows, err := s.q().ListSnapshotAnnotations(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot annotations: %w", err)
	}

	out := make([]tags.ParsedTask, 0, len(rows))
	for _, row := range rows {
		lines, err := decodeLines(row.Context)
		if err != nil {
			return nil, fmt.Errorf("snapshot annotation %s: %w", row.ID, err)
		}
		out = append(out, tags.ParsedTask{
			ID:      row.ID,
			File:    row.File,
			Line:    int(row.Line),
			Tag:     row.Tag,
			Text:    row.Text,
			Context: lines,
		})
	}
	return out, nil
}

// RekeySnapshot rewrites the annotation ids of a snapshot by position.
func (s *ScanStore) RekeySnapshot(ctx context.Context, snapshotID string, ids []string) error {
	return s.atomic(ctx, func(q *db.Queries) error {
		for i, id := range ids {
			n, err := q.SetSnapshotAnnotationID(ctx, db.SetSnapshotAnnotationIDParams{
				ID:         id,
				SnapshotID: snapshotID,
				Position:   int64(i),
			})
			if err != nil {
				return fmt.Errorf("rekey annotation %d: %w", i, err)
			}
			if n == 0 {
				return fmt.Errorf("rekey annotation %d: %w", i, scan.ErrSnapshotNotFound)
			}
		}
		return nil
	})
}

// SetAccepted flags a snapshot as the accepted baseline (or clears it).
func (s *ScanStore) SetAccepted(ctx context.Context, snapshotID string, accepted bool) error {
	n, err := s.q().SetSnapshotAccepted(ctx, db.SetSnapshotAcceptedParams{
		Accepted: accepted,
		ID:       snapshotID,
	})
	if err != nil {
		return fmt.Errorf("set snapshot accepted: %w", err)
	}
	if n == 0 {
		return scan.ErrSnapshotNotFound
	}
	return nil
}

// SavePending stores results as a new PENDING change-set. An empty
// oldSnapshotID records that there was no accepted baseline.
func (s *ScanStore) SavePending(ctx context.Context, projectID string, results []diff.Result, oldSnapshotID, newSnapshotID string) (scan.ChangeSet, error) {
	if results == nil {
		results = []diff.Result{}
	}

	bits, err := json.Marshal(results)
	if err != nil {
		return scan.ChangeSet{}, fmt.Errorf("encode change-set results: %w", err)
	}

	cs := scan.ChangeSet{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		OldSnapshotID: oldSnapshotID,
		NewSnapshotID: newSnapshotID,
		Status:        scan.StatusPending,
		Results:       results,
		CreatedAt:     time.Now(),
	}

	err = s.q().CreateChangeSet(ctx, db.CreateChangeSetParams{
		ID:            cs.ID,
		ProjectID:     projectID,
		OldSnapshotID: toNullString(oldSnapshotID),
		NewSnapshotID: newSnapshotID,
		Status:        string(cs.Status),
		Results:       string(bits),
		CreatedAt:     nanos(cs.CreatedAt),
	})
	if err != nil {
		return scan.ChangeSet{}, fmt.Errorf("save pending change-set: %w", err)
	}

	return cs, nil
}

// SupersedePending forces every PENDING change-set of the project to IGNORED.
func (s *ScanStore) SupersedePending(ctx context.Context, projectID string) (int64, error) {
	n, err := s.q().SupersedePendingChangeSets(ctx, db.SupersedePendingChangeSetsParams{
		ResolvedAt: nanos(time.Now()),
		ProjectID:  projectID,
	})
	if err != nil {
		return 0, fmt.Errorf("supersede pending change-sets: %w", err)
	}
	return n, nil
}

// ChangeSet returns a change-set with its decoded results.
func (s *ScanStore) ChangeSet(ctx context.Context, id string) (scan.ChangeSet, error) {
	row, err := s.q().GetChangeSet(ctx, id)
	if err != nil {
		if IsNotFoundError(err) {
			return scan.ChangeSet{}, scan.ErrChangeSetNotFound
		}
		return scan.ChangeSet{}, fmt.Errorf("get change-set: %w", err)
	}
	return rowToChangeSet(row)
}

// ListChangeSets returns change-sets matching filter, newest first.
func (s *ScanStore) ListChangeSets(ctx context.Context, filter scan.ListFilter) ([]scan.ChangeSet, error) {
	rows, err := s.q().ListChangeSets(ctx, db.ListChangeSetsParams{
		ProjectID: filter.ProjectID,
		Status:    string(filter.Status),
	})
	if err != nil {
		return nil, fmt.Errorf("list change-sets: %w", err)
	}

	out := make([]scan.ChangeSet, 0, len(rows))
	for _, row := range rows {
		cs, err := rowToChangeSet(row)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, nil
}

// SetStatus records a change-set's resolution. PENDING clears the resolve time.
func (s *ScanStore) SetStatus(ctx context.Context, id string, status scan.Status) error {
	var resolved sql.NullInt64
	if status != scan.StatusPending {
		resolved = sql.NullInt64{Int64: nanos(time.Now()), Valid: true}
	}

	n, err := s.q().UpdateChangeSetStatus(ctx, db.UpdateChangeSetStatusParams{
		Status:     string(status),
		ResolvedAt: resolved,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("set change-set status: %w", err)
	}
	if n == 0 {
		return scan.ErrChangeSetNotFound
	}
	return nil
}

func rowToSnapshot(row db.Snapshot) scan.Snapshot {
	return scan.Snapshot{
		ID:        row.ID,
		ProjectID: row.ProjectID,
		Ref:       row.Ref,
		Accepted:  row.Accepted,
		CreatedAt: fromNanos(row.CreatedAt),
	}
}

func rowToChangeSet(row db.ChangeSet) (scan.ChangeSet, error) {
	cs := scan.ChangeSet{
		ID:            row.ID,
		ProjectID:     row.ProjectID,
		OldSnapshotID: fromNullString(row.OldSnapshotID),
		NewSnapshotID: row.NewSnapshotID,
		Status:        scan.Status(row.Status),
		CreatedAt:     fromNanos(row.CreatedAt),
	}

	if row.ResolvedAt.Valid {
		t := fromNanos(row.ResolvedAt.Int64)
		cs.ResolvedAt = &t
	}

	if err := json.Unmarshal([]byte(row.Results), &cs.Results); err != nil {
		return scan.ChangeSet{}, fmt.Errorf("decode change-set %s results: %w", row.ID, err)
	}
	return cs, nil
}
