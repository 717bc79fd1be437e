package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/edgard/linerelay/internal/database"
)

type fakeStore struct {
	records   []*database.EventRecord
	gotLimit  int
	err       error
	pingErr   error
	pingCalls int
}

func (s *fakeStore) RecentEvents(_ context.Context, limit int) ([]*database.EventRecord, error) {
	s.gotLimit = limit
	return s.records, s.err
}

func (s *fakeStore) Ping(context.Context) error {
	s.pingCalls++
	return s.pingErr
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func do(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPingAndHealth(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	srv := NewServer(":0", 0, discard(), NewPingHandler(discard(), store))

	rec := do(srv.Handler(), http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(srv.Handler(), http.MethodHead, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.pingCalls)

	store.pingErr = errors.New("database is locked")
	rec = do(srv.Handler(), http.MethodHead, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecentEvents(t *testing.T) {
	t.Parallel()

	store := &fakeStore{records: []*database.EventRecord{
		{ID: 2, Kind: "image", Status: database.StatusReplied},
		{ID: 1, Kind: "text", Status: database.StatusFailed, Detail: "model error"},
	}}
	srv := NewServer(":0", 0, discard(), NewEventsHandler(discard(), store, "s3cret"))
	h := srv.Handler()

	tests := []struct {
		name       string
		target     string
		token      string
		wantStatus int
	}{
		{"wrong token", "/events/recent", "nope", http.StatusUnauthorized},
		{"bad limit", "/events/recent?limit=abc", "s3cret", http.StatusBadRequest},
		{"ok", "/events/recent?limit=5", "s3cret", http.StatusOK},
	}

	for _, tc := range tests {
		rec := do(h, http.MethodGet, tc.target, tc.token)
		assert.Equal(t, tc.wantStatus, rec.Code, tc.name)
	}

	rec := do(h, http.MethodGet, "/events/recent", "")
	assert.NotEqual(t, http.StatusOK, rec.Code, "missing token must be rejected")

	rec = do(h, http.MethodGet, "/events/recent?limit=5", "s3cret")
	var got []database.EventRecord
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
	assert.Equal(t, 5, store.gotLimit)
	assert.Equal(t, "model error", got[1].Detail)
}

func TestRecentEvents_DisabledWithoutToken(t *testing.T) {
	t.Parallel()

	srv := NewServer(":0", 0, discard(), NewEventsHandler(discard(), &fakeStore{}, ""))
	rec := do(srv.Handler(), http.MethodGet, "/events/recent", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentEvents_StoreError(t *testing.T) {
	t.Parallel()

	srv := NewServer(":0", 0, discard(), NewEventsHandler(discard(), &fakeStore{err: errors.New("boom")}, "tok"))
	rec := do(srv.Handler(), http.MethodGet, "/events/recent", "tok")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTokenValid(t *testing.T) {
	t.Parallel()

	assert.True(t, tokenValid("abc", "abc"))
	assert.False(t, tokenValid("abc", "abd"))
	assert.False(t, tokenValid("", "abc"))
	assert.False(t, tokenValid("abc", ""))
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	srv := NewServer("127.0.0.1:0", time.Second, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}

type panicRoute struct{}

func (panicRoute) Register(e *echo.Echo) {
	e.GET("/boom", func(echo.Context) error { panic("handler exploded") })
}

func TestPanicIsLoggedWithStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	srv := NewServer(":0", 0, log, panicRoute{})

	rec := do(srv.Handler(), http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	out := buf.String()
	assert.True(t, strings.Contains(out, "Finished processing request"), "request log line missing: %s", out)
	assert.True(t, strings.Contains(out, "status=500"), "status missing from request log: %s", out)
}
