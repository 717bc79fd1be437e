// Package app manages the lifecycle of the relay's long-running components:
// the HTTP server and the housekeeping scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

type httpServer interface {
	Run(ctx context.Context) error
}

// Relay runs the server and the scheduler until the context is cancelled or
// one of them fails.
type Relay struct {
	logger    *slog.Logger
	server    httpServer
	scheduler *Scheduler
}

// NewRelay creates the orchestrator.
func NewRelay(logger *slog.Logger, server httpServer, scheduler *Scheduler) *Relay {
	return &Relay{
		logger:    logger.With("component", "relay_orchestrator"),
		server:    server,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until shutdown completes.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("Starting relay orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := r.server.Run(gCtx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		if gCtx.Err() == nil {
			r.logger.Warn("HTTP server stopped unexpectedly without context cancellation.")
			return fmt.Errorf("http server stopped unexpectedly")
		}
		return nil
	})

	if r.scheduler != nil {
		g.Go(func() error {
			if err := r.scheduler.Start(); err != nil {
				r.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			r.logger.Info("Shutdown signal received, stopping scheduler...")

			if err := r.scheduler.Stop(); err != nil {
				r.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("Relay orchestrator stopped due to error", "error", err)
		return err
	}

	r.logger.Info("Relay orchestrator stopped gracefully.")
	return nil
}
