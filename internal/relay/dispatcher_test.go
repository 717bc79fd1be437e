package relay_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edgard/linerelay/internal/artifact"
	"github.com/edgard/linerelay/internal/config"
	"github.com/edgard/linerelay/internal/database"
	"github.com/edgard/linerelay/internal/prompt"
	"github.com/edgard/linerelay/internal/relay"
)

type fakeModel struct {
	mu       sync.Mutex
	requests []prompt.Request
	reply    string
	err      error
	// onGenerate runs inside Generate, e.g. to inspect staged files.
	onGenerate func(prompt.Request)
}

func (m *fakeModel) Generate(_ context.Context, req prompt.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.onGenerate != nil {
		m.onGenerate(req)
	}
	return m.reply, m.err
}

type stickerReply struct {
	token, packageID, stickerID string
}

type fakeReplier struct {
	mu       sync.Mutex
	texts    []string
	tokens   []string
	stickers []stickerReply
	err      error
}

func (r *fakeReplier) ReplyText(_ context.Context, token, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	r.texts = append(r.texts, text)
	return r.err
}

func (r *fakeReplier) ReplySticker(_ context.Context, token, packageID, stickerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stickers = append(r.stickers, stickerReply{token, packageID, stickerID})
	return r.err
}

func (r *fakeReplier) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts) + len(r.stickers)
}

type fakeContent struct {
	data map[string][]byte
}

func (c *fakeContent) FetchContent(_ context.Context, id string) ([]byte, error) {
	d, ok := c.data[id]
	if !ok {
		return nil, errors.New("content not found")
	}
	return d, nil
}

type fakeEvents struct {
	mu      sync.Mutex
	seen    map[string]bool
	records []*database.EventRecord
}

func (e *fakeEvents) SeenEvent(_ context.Context, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seen[id], nil
}

func (e *fakeEvents) SaveEvent(_ context.Context, rec *database.EventRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = append(e.records, rec)
	return nil
}

type harness struct {
	model   *fakeModel
	replier *fakeReplier
	content *fakeContent
	events  *fakeEvents
	store   *artifact.Store
	disp    *relay.Dispatcher
}

func newHarness(t *testing.T, unsupportedReply string) *harness {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	builder, err := prompt.NewBuilder(config.PromptsConfig{
		Language:          config.DefaultPromptsLanguage,
		Languages:         config.DefaultLanguages,
		MaxChars:          config.DefaultPromptsMaxChars,
		StoryInstruction:  config.DefaultStoryInstruction,
		StoryPrefix:       config.DefaultStoryPrefix,
		StorySuffix:       config.DefaultStorySuffix,
		VisionInstruction: config.DefaultVisionInstruction,
		VisionPrompt:      config.DefaultVisionPrompt,
	})
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}

	store, err := artifact.NewStore(config.ArtifactsConfig{
		Dir:        t.TempDir(),
		Extension:  "jpg",
		RetainLast: true,
		MaxAge:     time.Hour,
	}, log)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	h := &harness{
		model:   &fakeModel{reply: "model reply"},
		replier: &fakeReplier{},
		content: &fakeContent{data: map[string][]byte{"abc123": []byte("\xff\xd8\xff\xe0jpeg")}},
		events:  &fakeEvents{seen: map[string]bool{}},
		store:   store,
	}
	h.disp = relay.NewDispatcher(relay.Deps{
		Log:              log,
		Prompts:          builder,
		Model:            h.model,
		Replier:          h.replier,
		Content:          h.content,
		Artifacts:        store,
		Events:           h.events,
		UnsupportedReply: unsupportedReply,
	})
	return h
}

func meta(id string) relay.Meta {
	return relay.Meta{EventID: id, ReplyToken: "token-" + id, SourceType: "user", SourceID: "U1"}
}

func jpgFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	for i, m := range matches {
		matches[i] = filepath.Base(m)
	}
	return matches
}

func TestHandle_Text(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	err := h.disp.Handle(context.Background(), relay.TextEvent{Meta: meta("e1"), Text: "a robot who forgets"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(h.model.requests) != 1 {
		t.Fatalf("model calls = %d, want 1", len(h.model.requests))
	}
	req := h.model.requests[0]
	if req.Template != prompt.TemplateStory {
		t.Errorf("Template = %q, want story", req.Template)
	}
	segs := req.TextSegments()
	if len(segs) != 1 || len(req.ImagePaths()) != 0 {
		t.Fatalf("segments = %+v, want one text segment", req.Segments)
	}
	if !strings.HasSuffix(segs[0], "a robot who forgets」來創作一個有趣故事,250個字以內,請一律用繁體中文回答。") {
		t.Errorf("segment = %q, want user text followed by suffix", segs[0])
	}

	if len(h.replier.texts) != 1 || h.replier.texts[0] != "model reply" || h.replier.tokens[0] != "token-e1" {
		t.Errorf("replies = %v %v, want model reply on token-e1", h.replier.texts, h.replier.tokens)
	}
	if len(h.events.records) != 1 || h.events.records[0].Status != database.StatusReplied {
		t.Errorf("records = %+v, want one replied", h.events.records)
	}
	if h.events.records[0].ReplyChars != len("model reply") {
		t.Errorf("ReplyChars = %d, want %d", h.events.records[0].ReplyChars, len("model reply"))
	}
}

func TestHandle_StickerEcho(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	err := h.disp.Handle(context.Background(), relay.StickerEvent{Meta: meta("e1"), PackageID: "446", StickerID: "1988"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(h.model.requests) != 0 {
		t.Errorf("model called %d times for sticker", len(h.model.requests))
	}
	want := stickerReply{"token-e1", "446", "1988"}
	if len(h.replier.stickers) != 1 || h.replier.stickers[0] != want {
		t.Errorf("sticker replies = %+v, want %+v", h.replier.stickers, want)
	}
}

func TestHandle_ImageReplacesStaleArtifacts(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	for _, name := range []string{"old1.jpg", "old2.jpg"} {
		if err := os.WriteFile(filepath.Join(h.store.Dir(), name), []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var duringModel []string
	h.model.onGenerate = func(prompt.Request) { duringModel = jpgFiles(t, h.store.Dir()) }

	err := h.disp.Handle(context.Background(), relay.ImageEvent{Meta: meta("e1"), ContentID: "abc123"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	after := jpgFiles(t, h.store.Dir())
	if len(after) != 1 {
		t.Fatalf("jpg files = %v, want exactly one", after)
	}
	for _, name := range after {
		if name == "old1.jpg" || name == "old2.jpg" {
			t.Errorf("stale artifact %s survived", name)
		}
	}
	if len(duringModel) != 1 || duringModel[0] != after[0] {
		t.Errorf("files during model call = %v, want %v", duringModel, after)
	}

	req := h.model.requests[0]
	if req.Template != prompt.TemplateVision {
		t.Errorf("Template = %q, want vision", req.Template)
	}
	paths := req.ImagePaths()
	if len(paths) != 1 || filepath.Base(paths[0]) != after[0] {
		t.Errorf("image paths = %v, want the staged artifact", paths)
	}
	if len(h.replier.texts) != 1 {
		t.Errorf("text replies = %d, want 1", len(h.replier.texts))
	}
}

func TestHandle_Unsupported(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	err := h.disp.Handle(context.Background(), relay.UnsupportedEvent{Meta: meta("e1"), Type: "video"})
	if !errors.Is(err, relay.ErrUnsupported) {
		t.Fatalf("Handle() error = %v, want ErrUnsupported", err)
	}
	if len(h.model.requests) != 0 || h.replier.calls() != 0 {
		t.Errorf("model calls = %d, reply calls = %d; want zero", len(h.model.requests), h.replier.calls())
	}
	if len(h.events.records) != 1 || h.events.records[0].Status != database.StatusDropped {
		t.Errorf("records = %+v, want one dropped", h.events.records)
	}
}

func TestHandle_UnsupportedWithConfiguredReply(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "目前只支援文字、貼圖與圖片")
	if err := h.disp.Handle(context.Background(), relay.UnsupportedEvent{Meta: meta("e1"), Type: "audio"}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(h.model.requests) != 0 {
		t.Errorf("model called for unsupported event")
	}
	if len(h.replier.texts) != 1 || h.replier.texts[0] != "目前只支援文字、貼圖與圖片" {
		t.Errorf("replies = %v, want configured message", h.replier.texts)
	}
}

func TestHandle_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		event   relay.Event
		setup   func(*harness)
		wantErr error
		replies int
	}{
		{
			name:    "model error",
			event:   relay.TextEvent{Meta: meta("e1"), Text: "x"},
			setup:   func(h *harness) { h.model.err = errors.New("boom") },
			wantErr: relay.ErrModel,
		},
		{
			name:    "reply error",
			event:   relay.TextEvent{Meta: meta("e1"), Text: "x"},
			setup:   func(h *harness) { h.replier.err = errors.New("invalid reply token") },
			wantErr: relay.ErrDispatch,
			replies: 1,
		},
		{
			name:    "content fetch error",
			event:   relay.ImageEvent{Meta: meta("e1"), ContentID: "missing"},
			setup:   func(*harness) {},
			wantErr: relay.ErrDispatch,
		},
		{
			name:    "empty content",
			event:   relay.ImageEvent{Meta: meta("e1"), ContentID: "empty"},
			setup:   func(h *harness) { h.content.data["empty"] = nil },
			wantErr: relay.ErrArtifact,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, "")
			tc.setup(h)

			err := h.disp.Handle(context.Background(), tc.event)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Handle() error = %v, want %v", err, tc.wantErr)
			}
			if got := h.replier.calls(); got != tc.replies {
				t.Errorf("reply calls = %d, want %d", got, tc.replies)
			}
			if len(h.events.records) != 1 || h.events.records[0].Status != database.StatusFailed || h.events.records[0].Detail == "" {
				t.Errorf("records = %+v, want one failed with detail", h.events.records)
			}
		})
	}
}

func TestHandle_SkipsSeenRedelivery(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	h.events.seen["e1"] = true

	redelivered := meta("e1")
	redelivered.Redelivery = true
	if err := h.disp.Handle(context.Background(), relay.TextEvent{Meta: redelivered, Text: "x"}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(h.model.requests) != 0 || h.replier.calls() != 0 {
		t.Error("seen redelivered event was processed again")
	}
	if len(h.events.records) != 1 || h.events.records[0].Status != database.StatusSkipped {
		t.Errorf("records = %+v, want one skipped", h.events.records)
	}

	// A first delivery with a known ID is still handled.
	if err := h.disp.Handle(context.Background(), relay.TextEvent{Meta: meta("e1"), Text: "x"}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(h.model.requests) != 1 {
		t.Errorf("model calls = %d, want 1", len(h.model.requests))
	}
}

func TestDispatch_ContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")

	events := []relay.Event{
		relay.ImageEvent{Meta: meta("e1"), ContentID: "missing"},
		relay.UnsupportedEvent{Meta: meta("e2"), Type: "location"},
		relay.StickerEvent{Meta: meta("e3"), PackageID: "1", StickerID: "2"},
	}

	err := h.disp.Dispatch(context.Background(), events)
	if !errors.Is(err, relay.ErrDispatch) {
		t.Errorf("Dispatch() error = %v, want ErrDispatch", err)
	}
	if errors.Is(err, relay.ErrUnsupported) {
		t.Errorf("Dispatch() reported unsupported event as error: %v", err)
	}
	if len(h.replier.stickers) != 1 {
		t.Errorf("sticker replies = %d, want 1", len(h.replier.stickers))
	}
	if len(h.events.records) != 3 {
		t.Errorf("records = %d, want 3", len(h.events.records))
	}
}
