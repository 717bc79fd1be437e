package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// PingHandler serves the liveness probes. With a pinger, HEAD /health also
// checks the event log database.
type PingHandler struct {
	logger *slog.Logger
	db     pinger
}

// NewPingHandler creates the probe handler. db may be nil.
func NewPingHandler(log *slog.Logger, db pinger) *PingHandler {
	return &PingHandler{logger: log.With(slog.String("handler", "ping")), db: db}
}

// Register adds the probe routes.
func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.Health)
}

// Ping reports that the process is up.
func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Health returns 503 when the database does not answer.
func (h *PingHandler) Health(c echo.Context) error {
	if h.db != nil {
		if err := h.db.Ping(c.Request().Context()); err != nil {
			h.logger.WarnContext(c.Request().Context(), "Health check failed", "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
	}
	return c.NoContent(http.StatusOK)
}
