// Package main contains the entrypoint for the LINE to Gemini relay.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgard/linerelay/internal/app"
	"github.com/edgard/linerelay/internal/app/tasks"
	"github.com/edgard/linerelay/internal/artifact"
	"github.com/edgard/linerelay/internal/config"
	"github.com/edgard/linerelay/internal/database"
	"github.com/edgard/linerelay/internal/gemini"
	"github.com/edgard/linerelay/internal/line"
	"github.com/edgard/linerelay/internal/logger"
	"github.com/edgard/linerelay/internal/prompt"
	"github.com/edgard/linerelay/internal/relay"
	"github.com/edgard/linerelay/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, blocks until shutdown and returns the exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	artifacts, err := artifact.NewStore(cfg.Artifacts, log)
	if err != nil {
		log.Error("Failed to initialize artifact store", "dir", cfg.Artifacts.Dir, "error", err)
		return 1
	}

	if cfg.Artifacts.RetainLast && !cfg.TaskEnabled(tasks.ArtifactSweep) {
		log.Warn("Artifact sweep disabled, the last staged image is kept until the next one arrives", "dir", cfg.Artifacts.Dir)
	}

	prompts, err := prompt.NewBuilder(cfg.Prompts)
	if err != nil {
		log.Error("Failed to build prompt templates", "error", err)
		return 1
	}

	model, err := gemini.NewClient(ctx, cfg.Gemini, artifacts, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	lineClient, err := line.NewClient(cfg.Line, log)
	if err != nil {
		log.Error("Failed to initialize LINE client", "error", err)
		return 1
	}

	dispatcher := relay.NewDispatcher(relay.Deps{
		Log:              log,
		Prompts:          prompts,
		Model:            model,
		Replier:          lineClient,
		Content:          lineClient,
		Artifacts:        artifacts,
		Events:           store,
		UnsupportedReply: cfg.Messages.Unsupported,
	})

	webhook := line.NewWebhookHandler(log, line.WebhookConfig{
		Path:          cfg.Server.CallbackPath,
		ChannelSecret: cfg.Line.ChannelSecret,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		EventTimeout:  cfg.Server.EventTimeout,
	}, dispatcher)

	srv := server.NewServer(cfg.Server.Addr, cfg.Server.ShutdownTimeout, log,
		webhook,
		server.NewPingHandler(log, store),
		server.NewEventsHandler(log, store, cfg.Server.AdminToken),
	)

	sched, err := app.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:    log,
		Store:     store,
		Artifacts: artifacts,
		Config:    cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	log.Info("Starting relay...", "addr", cfg.Server.Addr, "callback_path", cfg.Server.CallbackPath, "model", cfg.Gemini.ModelName)
	runErr := app.NewRelay(log, srv, sched).Run(ctx)
	log.Info("Relay run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Relay stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Relay stopped gracefully.")
	return 0
}
