package tasksync

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/eventbus"
	"github.com/colonyops/tasksync/internal/core/logging"
	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/tags"
	"github.com/colonyops/tasksync/internal/core/task"
	"github.com/colonyops/tasksync/internal/github"
)

// Step is one state of the scan workflow. Its string form is the progress
// message sent to callers and must stay stable.
type Step string

const (
	StepStarting      Step = "starting"
	StepLoadingConfig Step = "loading config"
	StepScanningRepo  Step = "scanning repo"
	StepSavingScan    Step = "saving scan"
	StepFindingScan   Step = "finding existing scan"
	StepRunningDiff   Step = "running diff"
	StepSavingUpdate  Step = "saving update"
	StepDone          Step = "done"
	StepError         Step = "error"
)

// ErrNotLinked is reported when a project has no repository URL.
var ErrNotLinked = fmt.Errorf("%w: project not linked to repository", ErrBadRequest)

// Progress is one message of a scan run. The last message of every run is
// either StepDone or StepError.
type Progress struct {
	Step    Step   `json:"step"`
	Message string `json:"message"`

	// Set on StepDone.
	ChangeSetID string       `json:"change_set_id,omitempty"`
	Summary     diff.Summary `json:"summary,omitempty"`

	// Set on StepError.
	Err  error     `json:"-"`
	Kind ErrorKind `json:"kind,omitempty"`
}

// Failed reports whether p is a terminal error.
func (p Progress) Failed() bool {
	return p.Step == StepError
}

// Transactor runs fn with scan and task stores bound to one transaction.
// *stores.Transactor satisfies it.
type Transactor interface {
	InTx(ctx context.Context, fn func(scans scan.Store, tasks task.Store) error) error
}

// ScanOptions tunes a ScanService.
type ScanOptions struct {
	// Defaults is used for projects without a stored tag config.
	Defaults      project.Config
	ContextBefore int
	ContextAfter  int
}

// ScanService runs the scan workflow: load config, fetch and parse the
// repository, store a snapshot, diff it against the last accepted snapshot
// and store the result as the project's pending change-set.
type ScanService struct {
	projects project.Store
	scans    scan.Store
	tx       Transactor
	fetcher  *Fetcher
	bus      *eventbus.EventBus
	opts     ScanOptions
	log      zerolog.Logger
	now      func() time.Time
}

// NewScanService creates a ScanService. tx may be nil, in which case the
// supersede and save steps run as separate writes.
func NewScanService(
	projects project.Store,
	scans scan.Store,
	tx Transactor,
	fetcher *Fetcher,
	bus *eventbus.EventBus,
	opts ScanOptions,
	log zerolog.Logger,
) *ScanService {
	if opts.Defaults.IsEmpty() {
		opts.Defaults = project.DefaultConfig()
	}
	return &ScanService{
		projects: projects,
		scans:    scans,
		tx:       tx,
		fetcher:  fetcher,
		bus:      bus,
		opts:     opts,
		log:      logging.Component(log, "scan"),
		now:      time.Now,
	}
}

// Run returns the progress stream of one scan. The scan executes while the
// caller ranges over the stream. Stopping early abandons the run; writes that
// already happened are kept.
func (s *ScanService) Run(ctx context.Context, projectID, identity string) iter.Seq[Progress] {
	return func(yield func(Progress) bool) {
		s.run(ctx, projectID, identity, yield)
	}
}

// Scan runs the workflow to completion, passing each message to onProgress
// when it is non-nil. The final message is returned along with its error
// when the run failed.
func (s *ScanService) Scan(ctx context.Context, projectID, identity string, onProgress func(Progress)) (Progress, error) {
	var last Progress
	for p := range s.Run(ctx, projectID, identity) {
		if onProgress != nil {
			onProgress(p)
		}
		last = p
	}

	if last.Failed() {
		if last.Err != nil {
			return last, last.Err
		}
		return last, errors.New(last.Message)
	}
	return last, nil
}

func (s *ScanService) run(ctx context.Context, projectID, identity string, yield func(Progress) bool) {
	scanID := uuid.NewString()
	ctx = logging.WithScanID(logging.WithProjectID(ctx, projectID), scanID)
	started := s.now()

	step := func(st Step) bool {
		s.log.Debug().Ctx(ctx).Str("step", string(st)).Msg("scan step")
		return yield(Progress{Step: st, Message: string(st)})
	}
	fail := func(err error, reason string) {
		s.log.Warn().Ctx(ctx).Err(err).Msg("scan failed")
		yield(Progress{
			Step:    StepError,
			Message: "error: " + reason,
			Err:     err,
			Kind:    Kind(err),
		})
	}

	if !step(StepStarting) {
		return
	}

	p, err := s.projects.Get(ctx, projectID)
	if err != nil && !errors.Is(err, project.ErrNotFound) {
		fail(err, err.Error())
		return
	}
	if err != nil || !p.OwnedBy(identity) {
		fail(ErrAccessDenied, ErrAccessDenied.Error())
		return
	}

	if p.RepoURL == "" {
		fail(ErrNotLinked, "project not linked to repository")
		return
	}

	if !step(StepLoadingConfig) {
		return
	}

	cfg, err := s.loadConfig(ctx, p.ID)
	if err != nil {
		fail(err, err.Error())
		return
	}

	owner, repo, err := project.ParseRepoURL(p.RepoURL)
	if err != nil {
		fail(fmt.Errorf("%w: %w", ErrBadRequest, err), "could not parse repo url")
		return
	}

	if err := s.projects.BeginScan(ctx, p.ID); err != nil {
		fail(err, err.Error())
		return
	}
	defer func() {
		if err := s.projects.EndScan(context.WithoutCancel(ctx), p.ID); err != nil {
			s.log.Error().Ctx(ctx).Err(err).Msg("failed to reset scan status")
		}
	}()

	if !step(StepScanningRepo) {
		return
	}

	fetched, err := s.fetcher.Fetch(ctx, FetchRequest{
		Owner:         owner,
		Repo:          repo,
		Ref:           p.Ref(),
		Config:        cfg,
		ContextBefore: s.opts.ContextBefore,
		ContextAfter:  s.opts.ContextAfter,
	})
	if err != nil {
		fail(err, "scan failed - "+scanFailure(err))
		return
	}

	if !step(StepSavingScan) {
		return
	}

	snap, err := s.scans.SaveSnapshot(ctx, p.ID, p.Ref(), fetched.Tasks)
	if err != nil {
		fail(err, "could not save scan - "+err.Error())
		return
	}

	if !step(StepFindingScan) {
		return
	}

	oldID, oldTasks, err := s.baseline(ctx, p.ID)
	if err != nil {
		fail(err, "could not load existing scan - "+err.Error())
		return
	}

	if !step(StepRunningDiff) {
		return
	}

	results := diff.Generate(oldTasks, fetched.Tasks)

	if !step(StepSavingUpdate) {
		return
	}

	carried := diff.CarryIDs(fetched.Tasks, results)
	cs, superseded, err := s.savePending(ctx, p.ID, results, oldID, snap.ID, carried)
	if err != nil {
		fail(err, "could not save update - "+err.Error())
		return
	}

	s.log.Info().Ctx(ctx).
		Str("change_set_id", cs.ID).
		Int("files", fetched.Files).
		Int("tasks", len(fetched.Tasks)).
		Int("results", len(results)).
		Int64("superseded", superseded).
		Dur("elapsed", s.now().Sub(started)).
		Msg("scan complete")

	s.bus.PublishScanCompleted(eventbus.ScanCompletedPayload{
		ProjectID:  p.ID,
		SnapshotID: snap.ID,
		Ref:        p.Ref(),
		Files:      fetched.Files,
		Tasks:      len(fetched.Tasks),
	})
	s.bus.PublishChangeSetCreated(eventbus.ChangeSetCreatedPayload{
		ChangeSet:  &cs,
		Superseded: superseded,
	})

	yield(Progress{
		Step:        StepDone,
		Message:     string(StepDone),
		ChangeSetID: cs.ID,
		Summary:     cs.Summary(),
	})
}

// loadConfig returns the project's stored config, falling back to the
// service defaults when none is stored.
func (s *ScanService) loadConfig(ctx context.Context, projectID string) (project.Config, error) {
	cfg, err := s.projects.Config(ctx, projectID)
	if err != nil {
		if errors.Is(err, project.ErrInvalidConfig) {
			return project.Config{}, err
		}
		return project.Config{}, fmt.Errorf("load project config: %w", err)
	}

	if cfg.IsEmpty() {
		cfg = s.opts.Defaults.Merge(project.Config{Ignore: cfg.Ignore, IgnoreGlobs: cfg.IgnoreGlobs})
	}

	if err := cfg.Validate(); err != nil {
		return project.Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return cfg, nil
}

// baseline returns the latest accepted snapshot's annotations, or nothing
// when the project has never had a change-set accepted.
func (s *ScanService) baseline(ctx context.Context, projectID string) (string, []tags.ParsedTask, error) {
	prev, err := s.scans.LatestAccepted(ctx, projectID)
	if errors.Is(err, scan.ErrSnapshotNotFound) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}

	old, err := s.scans.Annotations(ctx, prev.ID)
	if err != nil {
		return "", nil, err
	}
	return prev.ID, old, nil
}

// savePending renames the new snapshot's annotations to the ids the diff
// matched them to, supersedes any pending change-set and stores the new one,
// atomically when a Transactor is available.
func (s *ScanService) savePending(ctx context.Context, projectID string, results []diff.Result, oldID, newID string, carried []tags.ParsedTask) (scan.ChangeSet, int64, error) {
	var (
		cs         scan.ChangeSet
		superseded int64
	)

	ids := make([]string, len(carried))
	for i, t := range carried {
		ids[i] = t.ID
	}

	write := func(scans scan.Store) error {
		if err := scans.RekeySnapshot(ctx, newID, ids); err != nil {
			return fmt.Errorf("carry annotation ids: %w", err)
		}

		n, err := scans.SupersedePending(ctx, projectID)
		if err != nil {
			return fmt.Errorf("supersede pending: %w", err)
		}
		superseded = n

		cs, err = scans.SavePending(ctx, projectID, results, oldID, newID)
		if err != nil {
			return fmt.Errorf("save pending: %w", err)
		}
		return nil
	}

	var err error
	if s.tx != nil {
		err = s.tx.InTx(ctx, func(scans scan.Store, _ task.Store) error {
			return write(scans)
		})
	} else {
		err = write(s.scans)
	}
	return cs, superseded, err
}

// scanFailure renders a fetch error for the progress stream, keeping rate
// limits distinct from other API failures.
func scanFailure(err error) string {
	var ghErr *github.Error
	if errors.As(err, &ghErr) {
		if ghErr.Kind == github.KindRateLimited {
			if ghErr.RetryAfter > 0 {
				return fmt.Sprintf("rate limited by github, retry after %s", ghErr.RetryAfter.Round(time.Second))
			}
			return "rate limited by github"
		}
		return ghErr.Error()
	}
	return err.Error()
}
