package tasksync

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/tasksync/internal/core/kv"
)

// DefaultSweepInterval is how often long running processes purge expired
// cache entries.
const DefaultSweepInterval = 5 * time.Minute

// Sweep periodically deletes expired KV entries. It blocks until ctx is
// cancelled.
func Sweep(ctx context.Context, store kv.KV, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Sweep(ctx)
			if err != nil {
				log.Debug().Err(err).Msg("kv sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("kv sweep")
			}
		}
	}
}
