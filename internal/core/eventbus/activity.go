package eventbus

import (
	"github.com/rs/zerolog"

	"github.com/colonyops/tasksync/internal/core/logging"
)

// ActivityLogger maps domain events to one info-level log line each so a
// log file doubles as an audit trail of scans and reviews.
type ActivityLogger struct {
	bus    *EventBus
	logger zerolog.Logger
}

// NewActivityLogger constructs an ActivityLogger writing to logger.
func NewActivityLogger(bus *EventBus, logger zerolog.Logger) *ActivityLogger {
	return &ActivityLogger{bus: bus, logger: logging.Component(logger, "activity")}
}

// Register subscribes all supported event mappings.
func (a *ActivityLogger) Register() {
	if a == nil || a.bus == nil {
		return
	}

	a.bus.SubscribeScanCompleted(func(p ScanCompletedPayload) {
		a.logger.Info().
			Str("project_id", p.ProjectID).
			Str("snapshot_id", p.SnapshotID).
			Str("ref", p.Ref).
			Int("files", p.Files).
			Int("tasks", p.Tasks).
			Msg("scan completed")
	})

	a.bus.SubscribeChangeSetCreated(func(p ChangeSetCreatedPayload) {
		if p.ChangeSet == nil {
			return
		}
		ev := a.logger.Info().
			Str("project_id", p.ChangeSet.ProjectID).
			Str("change_set_id", p.ChangeSet.ID).
			Int64("superseded", p.Superseded)
		for typ, n := range p.ChangeSet.Summary() {
			ev = ev.Int(string(typ), n)
		}
		ev.Msg("change-set created")
	})

	a.bus.SubscribeChangeSetResolved(func(p ChangeSetResolvedPayload) {
		if p.ChangeSet == nil {
			return
		}
		a.logger.Info().
			Str("project_id", p.ChangeSet.ProjectID).
			Str("change_set_id", p.ChangeSet.ID).
			Bool("approved", p.Approved).
			Int("applied", p.Applied).
			Msg("change-set resolved")
	})

	a.bus.SubscribeTaskCreated(func(p TaskCreatedPayload) {
		if p.Task == nil {
			return
		}
		a.logger.Info().
			Str("project_id", p.Task.ProjectID).
			Str("task_id", p.Task.ID).
			Str("title", p.Task.Title).
			Msg("task created")
	})
}
