package tasksync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/task"
)

// materializer turns approved diff results into task store writes. It is
// bound to one change-set and one set of (possibly transactional) stores.
type materializer struct {
	tasks    task.Store
	identity string
	cs       scan.ChangeSet
	titles   map[string]string
	log      zerolog.Logger

	created []task.Task
}

func (m *materializer) apply(ctx context.Context, item plannedItem) error {
	r := item.result

	switch item.action {
	case task.ActionIgnore:
		return nil
	case task.ActionCreate:
		return m.create(ctx, r)
	case task.ActionConfirm:
		return m.confirm(ctx, r)
	case task.ActionUnlink:
		return m.unlink(ctx, r)
	case task.ActionDelete:
		return m.delete(ctx, r)
	case task.ActionComplete:
		return m.complete(ctx, r)
	}

	return &ResolveError{Phase: PhaseAction, ItemID: r.ID, Err: fmt.Errorf("%w: %s", task.ErrInvalidAction, item.action)}
}

// create materializes a NEW result as a live annotation with a linked task.
func (m *materializer) create(ctx context.Context, r diff.Result) error {
	if err := m.upsert(ctx, r); err != nil {
		return err
	}

	title := m.titles[r.ID]
	if title == "" {
		title = r.Data.New.Text
	}

	t := task.Task{
		ProjectID:    m.cs.ProjectID,
		OwnerID:      m.identity,
		Title:        title,
		AnnotationID: r.ID,
	}
	if err := m.tasks.Create(ctx, &t); err != nil {
		return &ResolveError{Phase: PhaseAction, ItemID: r.ID, Err: fmt.Errorf("create task: %w", err)}
	}

	if err := m.history(ctx, t.ID, task.HistoryCreate, "created from "+location(r.Data.New)); err != nil {
		return &ResolveError{Phase: PhaseAction, ItemID: r.ID, Err: err}
	}

	m.created = append(m.created, t)
	return m.linkTag(ctx, t.ID, r)
}

// confirm moves the live annotation to the result's new position.
func (m *materializer) confirm(ctx context.Context, r diff.Result) error {
	if err := m.upsert(ctx, r); err != nil {
		return err
	}

	t, ok, err := m.linked(ctx, r)
	if err != nil || !ok {
		return err
	}
	return m.linkTag(ctx, t.ID, r)
}

// unlink detaches the task from its annotation without deleting it.
func (m *materializer) unlink(ctx context.Context, r diff.Result) error {
	t, ok, err := m.linked(ctx, r)
	if err != nil || !ok {
		return err
	}

	if err := m.tasks.SetAnnotation(ctx, t.ID, ""); err != nil {
		return &ResolveError{Phase: PhaseAction, ItemID: r.ID, Err: fmt.Errorf("unlink task: %w", err)}
	}
	if err := m.history(ctx, t.ID, task.HistoryUpdate, "unlinked from "+location(r.Current())); err != nil {
		return &ResolveError{Phase: PhaseAction, ItemID: r.ID, Err: err}
	}
	return m.linkTag(ctx, t.ID, r)
}

// delete marks the linked task deleted and removes the live annotation row.
// The two deletions are separate writes; both always happen together.
func (m *materializer) delete(ctx context.Context, r diff.Result) error {
	t, ok, err := m.linked(ctx, r)
	if err != nil {
		return err
	}

	if ok {
		if err := m.tasks.SetVisibility(ctx, t.ID, task.VisibilityDeleted); err != nil {
			return &ResolveError{Phase: PhaseAction, ItemID: r.ID, Err: fmt.Errorf("delete task: %w", err)}
		}
		if err := m.tasks.SetAnnotation(ctx, t.ID, ""); err != nil {
			return &ResolveError{Phase: PhaseAction, ItemID: r.ID, Err: fmt.Errorf("unlink task: %w", err)}
		}
		if err := m.history(ctx, t.ID, task.HistoryDelete, "removed from "+location(r.Data.Old)); err != nil {
			return &ResolveError{Phase: PhaseAction, ItemID: r.ID, Err: err}
		}
		if err := m.linkTag(ctx, t.ID, r); err != nil {
			return err
		}
	}

	if err := m.tasks.DeleteAnnotation(ctx, r.ID); err != nil {
		return &ResolveError{Phase: PhaseDelete, ItemID: r.ID, Err: err}
	}
	return nil
}

// complete marks the linked task done.
func (m *materializer) complete(ctx context.Context, r diff.Result) error {
	t, ok, err := m.linked(ctx, r)
	if err != nil || !ok {
		return err
	}

	if err := m.tasks.SetProgress(ctx, t.ID, task.ProgressCompleted); err != nil {
		return &ResolveError{Phase: PhaseAction, ItemID: r.ID, Err: fmt.Errorf("complete task: %w", err)}
	}
	if err := m.history(ctx, t.ID, task.HistoryUpdate, "completed, removed from "+location(r.Data.Old)); err != nil {
		return &ResolveError{Phase: PhaseAction, ItemID: r.ID, Err: err}
	}
	return m.linkTag(ctx, t.ID, r)
}

// upsert writes the result's current side as the live annotation.
func (m *materializer) upsert(ctx context.Context, r diff.Result) error {
	info := r.Current()
	if info == nil {
		return &ResolveError{Phase: PhaseUpsert, ItemID: r.ID, Err: errors.New("result has no position")}
	}

	err := m.tasks.UpsertAnnotation(ctx, task.Annotation{
		ID:         r.ID,
		ProjectID:  m.cs.ProjectID,
		SnapshotID: m.cs.NewSnapshotID,
		Tag:        r.Tag,
		Text:       info.Text,
		File:       info.File,
		Line:       info.Line,
		Context:    info.Context,
	})
	if err != nil {
		return &ResolveError{Phase: PhaseUpsert, ItemID: r.ID, Err: err}
	}
	return nil
}

// linked returns the task attached to the result's annotation, if any.
func (m *materializer) linked(ctx context.Context, r diff.Result) (task.Task, bool, error) {
	t, err := m.tasks.ForAnnotation(ctx, r.ID)
	if errors.Is(err, task.ErrNotFound) {
		m.log.Debug().Ctx(ctx).Str("item_id", r.ID).Msg("no task linked to annotation")
		return task.Task{}, false, nil
	}
	if err != nil {
		return task.Task{}, false, &ResolveError{Phase: PhaseAction, ItemID: r.ID, Err: err}
	}
	return t, true, nil
}

// linkTag associates the task with the identity's active tag named after the
// annotation's tag. A missing tag is logged and skipped.
func (m *materializer) linkTag(ctx context.Context, taskID string, r diff.Result) error {
	tag, err := m.tasks.FindTag(ctx, m.identity, r.Tag)
	if errors.Is(err, task.ErrTagNotFound) {
		m.log.Warn().Ctx(ctx).
			Str("item_id", r.ID).
			Str("tag", r.Tag).
			Msg("no active tag for annotation, skipping tag link")
		return nil
	}
	if err != nil {
		return &ResolveError{Phase: PhaseTagLink, ItemID: r.ID, Err: err}
	}

	if err := m.tasks.LinkTag(ctx, taskID, tag.ID); err != nil {
		return &ResolveError{Phase: PhaseTagLink, ItemID: r.ID, Err: err}
	}
	return nil
}

func (m *materializer) history(ctx context.Context, taskID string, action task.HistoryAction, detail string) error {
	err := m.tasks.AppendHistory(ctx, task.HistoryEntry{
		TaskID: taskID,
		Action: action,
		Actor:  m.identity,
		Detail: detail,
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func location(info *diff.Info) string {
	if info == nil {
		return "unknown location"
	}
	return fmt.Sprintf("%s:%d", info.File, info.Line)
}
