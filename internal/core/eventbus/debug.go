package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RegisterDebugLogger logs every publish at debug level, drops at warn and
// subscriber panics at error.
func RegisterDebugLogger(bus *EventBus, logger zerolog.Logger) {
	bus.OnPublish(func(event Event, payload any) {
		withProject(logger.Debug(), payload).Str("event", string(event)).Msg("event fired")
	})

	bus.OnDrop(func(event Event, payload any) {
		withProject(logger.Warn(), payload).Str("event", string(event)).Msg("event dropped: buffer full")
	})

	bus.OnPanic(func(event Event, payload any, recovered any) {
		withProject(logger.Error(), payload).
			Str("event", string(event)).
			Str("panic", fmt.Sprint(recovered)).
			Msg("subscriber panicked")
	})
}

// withProject adds the project id carried by payload, if any.
func withProject(e *zerolog.Event, payload any) *zerolog.Event {
	var id string
	switch p := payload.(type) {
	case ScanCompletedPayload:
		id = p.ProjectID
	case ChangeSetCreatedPayload:
		if p.ChangeSet != nil {
			id = p.ChangeSet.ProjectID
		}
	case ChangeSetResolvedPayload:
		if p.ChangeSet != nil {
			id = p.ChangeSet.ProjectID
		}
	case TaskCreatedPayload:
		if p.Task != nil {
			id = p.Task.ProjectID
		}
	}
	if id == "" {
		return e
	}
	return e.Str("project_id", id)
}
