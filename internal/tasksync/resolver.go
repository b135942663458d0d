package tasksync

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/eventbus"
	"github.com/colonyops/tasksync/internal/core/logging"
	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/task"
)

// ResolveRequest is a reviewer's decision on a pending change-set.
type ResolveRequest struct {
	ProjectID   string `json:"project_id"`
	ChangeSetID string `json:"change_set_id"`
	// Actions maps an action to the diff result ids it applies to. Results
	// not listed are ignored.
	Actions map[task.Action][]string `json:"actions"`
	// Titles overrides the title of tasks created from NEW results.
	Titles   map[string]string `json:"titles,omitempty"`
	Approved bool              `json:"approved"`
}

// ResolveResult summarizes a resolve.
type ResolveResult struct {
	Applied bool                `json:"applied"`
	Status  scan.Status         `json:"status"`
	Counts  map[task.Action]int `json:"counts,omitempty"`
	Created []string            `json:"created,omitempty"`
}

// Resolver applies a reviewed change-set to the task store.
type Resolver struct {
	projects project.Store
	scans    scan.Store
	tasks    task.Store
	tx       Transactor
	bus      *eventbus.EventBus
	log      zerolog.Logger
}

// NewResolver creates a Resolver. When tx is non-nil every resolve runs in
// one transaction and a failing item rolls back the whole call. Without it,
// items applied before a failure stay applied.
func NewResolver(
	projects project.Store,
	scans scan.Store,
	tasks task.Store,
	tx Transactor,
	bus *eventbus.EventBus,
	log zerolog.Logger,
) *Resolver {
	return &Resolver{
		projects: projects,
		scans:    scans,
		tasks:    tasks,
		tx:       tx,
		bus:      bus,
		log:      logging.Component(log, "resolver"),
	}
}

type plannedItem struct {
	result diff.Result
	action task.Action
}

// Resolve accepts or rejects a pending change-set. Rejecting only flags the
// snapshot and change-set. Accepting applies every listed action in result
// order. Per-item failures are logged and processing continues; the first
// one is returned as a *ResolveError.
func (r *Resolver) Resolve(ctx context.Context, identity string, req ResolveRequest) (ResolveResult, error) {
	if req.ProjectID == "" || req.ChangeSetID == "" {
		return ResolveResult{}, fmt.Errorf("%w: project_id and change_set_id are required", ErrBadRequest)
	}

	ctx = logging.WithChangeSetID(logging.WithProjectID(ctx, req.ProjectID), req.ChangeSetID)

	p, err := r.projects.Get(ctx, req.ProjectID)
	if err != nil && !errors.Is(err, project.ErrNotFound) {
		return ResolveResult{}, fmt.Errorf("get project: %w", err)
	}
	if err != nil || !p.OwnedBy(identity) {
		return ResolveResult{}, ErrAccessDenied
	}

	var (
		res     ResolveResult
		cs      scan.ChangeSet
		created []task.Task
	)

	work := func(scans scan.Store, tasks task.Store) error {
		var err error
		cs, err = scans.ChangeSet(ctx, req.ChangeSetID)
		if err != nil {
			return err
		}
		if cs.ProjectID != p.ID {
			return scan.ErrChangeSetNotFound
		}
		if cs.Status != scan.StatusPending {
			return fmt.Errorf("%w: change-set is %s, not %s", ErrBadRequest, cs.Status, scan.StatusPending)
		}

		if !req.Approved {
			if err := scans.SetAccepted(ctx, cs.NewSnapshotID, false); err != nil {
				return fmt.Errorf("reject snapshot: %w", err)
			}
			if err := scans.SetStatus(ctx, cs.ID, scan.StatusRejected); err != nil {
				return fmt.Errorf("reject change-set: %w", err)
			}
			cs.Status = scan.StatusRejected
			res = ResolveResult{Applied: false, Status: scan.StatusRejected}
			return nil
		}

		plan, err := planActions(cs, req.Actions)
		if err != nil {
			return err
		}

		if err := scans.SetAccepted(ctx, cs.NewSnapshotID, true); err != nil {
			return fmt.Errorf("accept snapshot: %w", err)
		}
		if err := scans.SetStatus(ctx, cs.ID, scan.StatusAccepted); err != nil {
			return fmt.Errorf("accept change-set: %w", err)
		}
		cs.Status = scan.StatusAccepted

		m := &materializer{
			tasks:    tasks,
			identity: identity,
			cs:       cs,
			titles:   req.Titles,
			log:      r.log,
		}

		res = ResolveResult{Applied: true, Status: scan.StatusAccepted, Counts: map[task.Action]int{}}

		var first error
		for _, item := range plan {
			if err := m.apply(ctx, item); err != nil {
				r.log.Error().Ctx(ctx).Err(err).
					Str("item_id", item.result.ID).
					Str("action", string(item.action)).
					Msg("failed to apply action")
				if first == nil {
					first = err
				}
				continue
			}
			res.Counts[item.action]++
		}

		created = m.created
		for _, t := range created {
			res.Created = append(res.Created, t.ID)
		}
		return first
	}

	if r.tx != nil {
		err = r.tx.InTx(ctx, work)
	} else {
		err = work(r.scans, r.tasks)
	}

	if err != nil {
		var rerr *ResolveError
		if errors.As(err, &rerr) && res.Applied {
			if r.tx != nil {
				r.log.Warn().Ctx(ctx).Msg("resolve rolled back")
				return ResolveResult{}, err
			}
			// Items applied before the failure stay applied.
			return res, err
		}
		return ResolveResult{}, err
	}

	r.log.Info().Ctx(ctx).
		Bool("approved", req.Approved).
		Int("created", len(created)).
		Msg("change-set resolved")

	r.bus.PublishChangeSetResolved(eventbus.ChangeSetResolvedPayload{
		ChangeSet: &cs,
		Approved:  req.Approved,
		Applied:   sumCounts(res.Counts),
	})
	for i := range created {
		r.bus.PublishTaskCreated(eventbus.TaskCreatedPayload{Task: &created[i]})
	}

	return res, nil
}

// planActions pairs each listed id with its diff result and checks the
// action is legal for the result's type. Nothing is written before the whole
// plan validates. The plan follows the change-set's result order.
func planActions(cs scan.ChangeSet, actions map[task.Action][]string) ([]plannedItem, error) {
	byID := make(map[string]task.Action)

	for rawAction, ids := range actions {
		action, err := task.ParseAction(string(rawAction))
		if err != nil {
			return nil, &ResolveError{Phase: PhaseValidate, Err: fmt.Errorf("%w: %w", ErrBadRequest, err)}
		}
		for _, id := range ids {
			if prev, dup := byID[id]; dup && prev != action {
				return nil, &ResolveError{
					Phase:  PhaseValidate,
					ItemID: id,
					Err:    fmt.Errorf("%w: listed under both %s and %s", ErrBadRequest, prev, action),
				}
			}
			if _, ok := cs.Find(id); !ok {
				return nil, &ResolveError{
					Phase:  PhaseValidate,
					ItemID: id,
					Err:    fmt.Errorf("%w: not part of change-set %s", ErrBadRequest, cs.ID),
				}
			}
			byID[id] = action
		}
	}

	plan := make([]plannedItem, 0, len(byID))
	for _, result := range cs.Results {
		action, ok := byID[result.ID]
		if !ok {
			continue
		}
		if err := task.ValidateAction(result.Type, action); err != nil {
			return nil, &ResolveError{Phase: PhaseValidate, ItemID: result.ID, Err: err}
		}
		plan = append(plan, plannedItem{result: result, action: action})
	}
	return plan, nil
}

func sumCounts(counts map[task.Action]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
