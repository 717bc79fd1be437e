package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for event log operations.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SeenEvent reports whether an event with the given webhook event ID was recorded.
	SeenEvent(ctx context.Context, webhookEventID string) (bool, error)

	// SaveEvent inserts a new event record and sets its ID.
	SaveEvent(ctx context.Context, rec *EventRecord) error

	// RecentEvents returns the newest records first.
	RecentEvents(ctx context.Context, limit int) ([]*EventRecord, error)

	// PruneEvents deletes records created before the cutoff.
	PruneEvents(ctx context.Context, before time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SeenEvent(ctx context.Context, webhookEventID string) (bool, error) {
	if webhookEventID == "" {
		return false, nil
	}

	var seen bool
	err := s.db.GetContext(ctx, &seen,
		`SELECT EXISTS(SELECT 1 FROM events WHERE webhook_event_id = ? AND status != ?);`,
		webhookEventID, StatusSkipped)
	if err != nil {
		return false, fmt.Errorf("failed to look up event %s: %w", webhookEventID, err)
	}
	return seen, nil
}

func (s *sqlxStore) SaveEvent(ctx context.Context, rec *EventRecord) error {
	if rec == nil {
		return fmt.Errorf("cannot save nil event record")
	}
	if rec.Kind == "" || rec.Status == "" {
		return fmt.Errorf("event record must have kind and status")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	// Timestamps are compared as text, so they are always stored in UTC.
	rec.CreatedAt = rec.CreatedAt.UTC()

	query := `
        INSERT INTO events (webhook_event_id, kind, source_type, source_id, status, detail, reply_chars, duration_ms, created_at)
        VALUES (:webhook_event_id, :kind, :source_type, :source_id, :status, :detail, :reply_chars, :duration_ms, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving event", "webhook_event_id", rec.WebhookEventID, "error", err)
		return fmt.Errorf("failed to save event %s: %w", rec.WebhookEventID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get last insert ID for event", "error", err)
		return nil
	}
	rec.ID = id
	return nil
}

func (s *sqlxStore) RecentEvents(ctx context.Context, limit int) ([]*EventRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	} else if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	var records []*EventRecord
	query := `
        SELECT id, webhook_event_id, kind, source_type, source_id, status, detail, reply_chars, duration_ms, created_at
        FROM events
        ORDER BY created_at DESC, id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent events", "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}
	return records, nil
}

func (s *sqlxStore) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?;`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned events: %w", err)
	}
	s.logger.InfoContext(ctx, "Pruned event log", "before", before.UTC(), "deleted", n)
	return n, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
