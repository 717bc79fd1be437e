package tasks

import (
	"context"
	"fmt"
	"time"
)

// newEventPruneTask deletes event log rows older than database.event_retention.
func newEventPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", EventPrune)

	return func(ctx context.Context) error {
		cutoff := time.Now().Add(-deps.Config.Database.EventRetention)

		deleted, err := deps.Store.PruneEvents(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("event prune failed: %w", err)
		}

		log.InfoContext(ctx, "Event log pruned", "cutoff", cutoff.UTC(), "deleted", deleted)
		return nil
	}
}
