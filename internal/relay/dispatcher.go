// Package relay classifies webhook events and routes each one to the model
// and the reply channel.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/edgard/linerelay/internal/artifact"
	"github.com/edgard/linerelay/internal/database"
	"github.com/edgard/linerelay/internal/logger"
	"github.com/edgard/linerelay/internal/prompt"
)

// Model generates a reply for a prompt request.
type Model interface {
	Generate(ctx context.Context, req prompt.Request) (string, error)
}

// Replier sends replies to the conversation an event came from.
type Replier interface {
	ReplyText(ctx context.Context, replyToken, text string) error
	ReplySticker(ctx context.Context, replyToken, packageID, stickerID string) error
}

// ContentFetcher retrieves binary message content by ID.
type ContentFetcher interface {
	FetchContent(ctx context.Context, contentID string) ([]byte, error)
}

// ArtifactStore stages image bytes for the model client.
type ArtifactStore interface {
	Put(ctx context.Context, data []byte) (*artifact.Artifact, error)
}

// EventLog records handled events. It is optional.
type EventLog interface {
	SeenEvent(ctx context.Context, webhookEventID string) (bool, error)
	SaveEvent(ctx context.Context, rec *database.EventRecord) error
}

// Deps holds the collaborators of a Dispatcher.
type Deps struct {
	Log       *slog.Logger
	Prompts   *prompt.Builder
	Model     Model
	Replier   Replier
	Content   ContentFetcher
	Artifacts ArtifactStore
	Events    EventLog
	// UnsupportedReply is sent for unsupported events when non-empty.
	UnsupportedReply string
}

// Dispatcher handles classified events.
type Dispatcher struct {
	deps Deps
	log  *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(deps Deps) *Dispatcher {
	log := deps.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{deps: deps, log: log.With("component", "dispatcher")}
}

// maxDetailChars caps the error text stored with an event record.
const maxDetailChars = 500

// outcome is what handling one event produced, for the event log.
type outcome struct {
	status     string
	replyChars int
}

// Dispatch handles events in order. One event failing does not stop the rest.
// Unsupported events are not reported as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, events []Event) error {
	var errs []error
	for _, ev := range events {
		if err := d.Handle(ctx, ev); err != nil && !errors.Is(err, ErrUnsupported) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handle processes a single event and records the result.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	start := time.Now()
	meta := ev.EventMeta()
	log := d.log.With(
		"event_id", meta.EventID,
		"kind", ev.Kind(),
		"source_type", meta.SourceType,
		"source_id", meta.SourceID,
	)

	if meta.Redelivery && d.deps.Events != nil {
		seen, err := d.deps.Events.SeenEvent(ctx, meta.EventID)
		if err != nil {
			log.WarnContext(ctx, "Failed to check event log for redelivered event", "error", err)
		} else if seen {
			log.InfoContext(ctx, "Skipping redelivered event already handled")
			d.record(ctx, log, ev, outcome{status: database.StatusSkipped}, nil, start)
			return nil
		}
	}

	var (
		out outcome
		err error
	)
	switch e := ev.(type) {
	case TextEvent:
		out, err = d.handleText(ctx, log, e)
	case StickerEvent:
		out, err = d.handleSticker(ctx, e)
	case ImageEvent:
		out, err = d.handleImage(ctx, log, e)
	default:
		out, err = d.handleUnsupported(ctx, log, ev)
	}

	switch {
	case err == nil:
		log.InfoContext(ctx, "Event handled", "status", out.status, "duration", time.Since(start))
	case errors.Is(err, ErrUnsupported):
		out.status = database.StatusDropped
	default:
		out.status = database.StatusFailed
		log.ErrorContext(ctx, "Event handling failed", "error", err, "duration", time.Since(start))
	}

	d.record(ctx, log, ev, out, err, start)
	return err
}

func (d *Dispatcher) handleText(ctx context.Context, log *slog.Logger, e TextEvent) (outcome, error) {
	log.DebugContext(ctx, "Handling text message", "text_chars", utf8.RuneCountInString(e.Text))

	reply, err := d.deps.Model.Generate(ctx, d.deps.Prompts.Story(e.Text))
	if err != nil {
		return outcome{}, fmt.Errorf("%w: story generation: %w", ErrModel, err)
	}
	return d.replyText(ctx, e.ReplyToken, reply)
}

func (d *Dispatcher) handleSticker(ctx context.Context, e StickerEvent) (outcome, error) {
	if err := d.deps.Replier.ReplySticker(ctx, e.ReplyToken, e.PackageID, e.StickerID); err != nil {
		return outcome{}, fmt.Errorf("%w: sticker reply: %w", ErrDispatch, err)
	}
	return outcome{status: database.StatusReplied}, nil
}

func (d *Dispatcher) handleImage(ctx context.Context, log *slog.Logger, e ImageEvent) (outcome, error) {
	data, err := d.deps.Content.FetchContent(ctx, e.ContentID)
	if err != nil {
		return outcome{}, fmt.Errorf("%w: fetch content %s: %w", ErrDispatch, e.ContentID, err)
	}

	a, err := d.deps.Artifacts.Put(ctx, data)
	if err != nil {
		return outcome{}, fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	defer a.Release()

	log.DebugContext(ctx, "Image staged", "artifact", a.Name, "size", a.Size)

	reply, err := d.deps.Model.Generate(ctx, d.deps.Prompts.Vision(a.Path))
	if err != nil {
		return outcome{}, fmt.Errorf("%w: vision generation: %w", ErrModel, err)
	}
	return d.replyText(ctx, e.ReplyToken, reply)
}

func (d *Dispatcher) handleUnsupported(ctx context.Context, log *slog.Logger, ev Event) (outcome, error) {
	typ := ev.Kind()
	if u, ok := ev.(UnsupportedEvent); ok && u.Type != "" {
		typ = u.Type
	}

	if d.deps.UnsupportedReply == "" || ev.EventMeta().ReplyToken == "" {
		log.InfoContext(ctx, "Dropping unsupported event", "type", typ)
		return outcome{}, fmt.Errorf("%w: %s", ErrUnsupported, typ)
	}

	log.InfoContext(ctx, "Replying to unsupported event", "type", typ)
	return d.replyText(ctx, ev.EventMeta().ReplyToken, d.deps.UnsupportedReply)
}

func (d *Dispatcher) replyText(ctx context.Context, replyToken, text string) (outcome, error) {
	if err := d.deps.Replier.ReplyText(ctx, replyToken, text); err != nil {
		return outcome{}, fmt.Errorf("%w: text reply: %w", ErrDispatch, err)
	}
	return outcome{status: database.StatusReplied, replyChars: utf8.RuneCountInString(text)}, nil
}

// record writes the event log row. Failures are logged and never change the event result.
func (d *Dispatcher) record(ctx context.Context, log *slog.Logger, ev Event, out outcome, handleErr error, start time.Time) {
	if d.deps.Events == nil {
		return
	}

	meta := ev.EventMeta()
	rec := &database.EventRecord{
		WebhookEventID: meta.EventID,
		Kind:           ev.Kind(),
		SourceType:     meta.SourceType,
		SourceID:       meta.SourceID,
		Status:         out.status,
		ReplyChars:     out.replyChars,
		DurationMs:     time.Since(start).Milliseconds(),
	}
	if handleErr != nil {
		rec.Detail = logger.Truncate(handleErr.Error(), maxDetailChars)
	}

	if err := d.deps.Events.SaveEvent(ctx, rec); err != nil {
		log.WarnContext(ctx, "Failed to record event", "error", err)
	}
}
