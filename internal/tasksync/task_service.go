package tasksync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/colonyops/tasksync/internal/core/task"
	"github.com/colonyops/tasksync/internal/core/validate"
)

// TaskService answers task, history and tag queries for an identity.
type TaskService struct {
	projects *ProjectService
	tasks    task.Store
}

// NewTaskService creates a TaskService.
func NewTaskService(projects *ProjectService, tasks task.Store) *TaskService {
	return &TaskService{projects: projects, tasks: tasks}
}

// TaskView is a task with its live annotation and tags.
type TaskView struct {
	task.Task
	Annotation *task.Annotation `json:"annotation,omitempty"`
	Tags       []string         `json:"tags,omitempty"`
}

// List returns the identity's tasks, optionally limited to one project.
func (s *TaskService) List(ctx context.Context, identity, projectID string, includeDeleted bool) ([]task.Task, error) {
	if projectID != "" {
		if _, err := s.projects.Get(ctx, identity, projectID); err != nil {
			return nil, err
		}
	}
	return s.tasks.List(ctx, task.ListFilter{
		ProjectID:      projectID,
		OwnerID:        identity,
		IncludeDeleted: includeDeleted,
	})
}

// Get returns one of the identity's tasks with its annotation and tags.
func (s *TaskService) Get(ctx context.Context, identity, id string) (TaskView, error) {
	t, err := s.owned(ctx, identity, id)
	if err != nil {
		return TaskView{}, err
	}

	view := TaskView{Task: t}

	if t.Linked() {
		a, err := s.tasks.Annotation(ctx, t.AnnotationID)
		switch {
		case err == nil:
			view.Annotation = &a
		case !errors.Is(err, task.ErrAnnotationNotFound):
			return TaskView{}, err
		}
	}

	tags, err := s.tasks.TaskTags(ctx, t.ID)
	if err != nil {
		return TaskView{}, err
	}
	for _, tg := range tags {
		view.Tags = append(view.Tags, tg.Name)
	}

	return view, nil
}

// History returns a task's history, oldest first.
func (s *TaskService) History(ctx context.Context, identity, id string) ([]task.HistoryEntry, error) {
	if _, err := s.owned(ctx, identity, id); err != nil {
		return nil, err
	}
	return s.tasks.History(ctx, id)
}

// AddTag creates an active tag for identity. Annotations whose tag label
// matches the name are linked to it when their tasks are materialized.
func (s *TaskService) AddTag(ctx context.Context, identity, name string) (task.Tag, error) {
	if identity == "" {
		return task.Tag{}, fmt.Errorf("%w: identity is required", ErrBadRequest)
	}
	if err := validate.TagNameField("name", name); err != nil {
		return task.Tag{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	name = strings.TrimSpace(name)

	t := task.Tag{OwnerID: identity, Name: name}
	if err := s.tasks.CreateTag(ctx, &t); err != nil {
		return task.Tag{}, err
	}
	return t, nil
}

// Tags returns the identity's tags.
func (s *TaskService) Tags(ctx context.Context, identity string) ([]task.Tag, error) {
	return s.tasks.ListTags(ctx, identity)
}

func (s *TaskService) owned(ctx context.Context, identity, id string) (task.Task, error) {
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return task.Task{}, err
	}
	if t.OwnerID != identity {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}
