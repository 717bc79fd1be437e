package tasks

import (
	"context"
	"fmt"
)

// newArtifactSweepTask bounds how long the last staged image stays on disk
// when no further images arrive.
func newArtifactSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", ArtifactSweep)

	return func(ctx context.Context) error {
		removed, err := deps.Artifacts.Sweep(ctx, deps.Config.Artifacts.MaxAge)
		if err != nil {
			return fmt.Errorf("artifact sweep failed: %w", err)
		}

		if removed > 0 {
			log.InfoContext(ctx, "Swept stale artifacts", "removed", removed)
		}
		return nil
	}
}
