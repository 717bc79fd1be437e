// Package tasks implements the relay's scheduled housekeeping tasks.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/linerelay/internal/config"
	"github.com/edgard/linerelay/internal/database"
)

// ScheduledTaskFunc is the signature of every scheduled task.
// The context is cancelled when the scheduler stops.
type ScheduledTaskFunc func(ctx context.Context) error

// ArtifactSweeper removes stale staged images.
type ArtifactSweeper interface {
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}

// TaskDeps contains the dependencies of scheduled tasks.
type TaskDeps struct {
	Logger    *slog.Logger
	Store     database.Store
	Artifacts ArtifactSweeper
	Config    *config.Config
}

// Task names, matching the keys under scheduler.tasks in the configuration.
const (
	ArtifactSweep  = "artifact_sweep"
	EventPrune     = "event_prune"
	SQLMaintenance = "sql_maintenance"
)

// RegisterAllTasks returns the task registry keyed by task name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		ArtifactSweep:  newArtifactSweepTask(deps),
		EventPrune:     newEventPruneTask(deps),
		SQLMaintenance: newSQLMaintenanceTask(deps),
	}

	deps.Logger.Debug("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
