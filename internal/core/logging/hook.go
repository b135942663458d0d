package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook copies project_id, scan_id and change_set_id from the event's
// context onto the event.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil || ctx == context.Background() {
		return
	}

	for _, key := range []contextKey{projectIDKey, scanIDKey, changeSetIDKey} {
		if v := stringValue(ctx, key); v != "" {
			e.Str(string(key), v)
		}
	}
}
