package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/edgard/linerelay/internal/database"
)

type recentEventsReader interface {
	RecentEvents(ctx context.Context, limit int) ([]*database.EventRecord, error)
}

// EventsHandler serves the event log to operators holding the admin token.
type EventsHandler struct {
	logger *slog.Logger
	store  recentEventsReader
	token  string
}

// NewEventsHandler creates the event log handler. An empty adminToken leaves
// the route unregistered.
func NewEventsHandler(log *slog.Logger, store recentEventsReader, adminToken string) *EventsHandler {
	return &EventsHandler{
		logger: log.With(slog.String("handler", "events")),
		store:  store,
		token:  adminToken,
	}
}

// Register adds the route only when an admin token is configured.
func (h *EventsHandler) Register(e *echo.Echo) {
	if h.token == "" || h.store == nil {
		h.logger.Info("Event log route disabled, no admin token configured")
		return
	}
	g := e.Group("/events", BearerAuth(h.token))
	g.GET("/recent", h.Recent)
}

// Recent returns the newest event records. The limit query parameter is
// clamped by the store.
func (h *EventsHandler) Recent(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}

	records, err := h.store.RecentEvents(c.Request().Context(), limit)
	if err != nil {
		h.logger.ErrorContext(c.Request().Context(), "Failed to load recent events", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load events")
	}
	if records == nil {
		records = []*database.EventRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

// BearerAuth requires "Authorization: Bearer <token>" and compares the token
// in constant time.
func BearerAuth(token string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, _ echo.Context) (bool, error) {
			return tokenValid(key, token), nil
		},
	})
}

func tokenValid(provided, expected string) bool {
	if provided == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
