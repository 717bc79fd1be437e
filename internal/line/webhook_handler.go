package line

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/edgard/linerelay/internal/relay"
)

type eventDispatcher interface {
	Dispatch(ctx context.Context, events []relay.Event) error
}

// WebhookConfig configures the callback route.
type WebhookConfig struct {
	Path          string
	ChannelSecret string
	MaxBodyBytes  int64
	EventTimeout  time.Duration
}

// WebhookHandler receives LINE webhook callbacks.
type WebhookHandler struct {
	logger     *slog.Logger
	cfg        WebhookConfig
	dispatcher eventDispatcher
}

// NewWebhookHandler creates the callback handler.
func NewWebhookHandler(log *slog.Logger, cfg WebhookConfig, dispatcher eventDispatcher) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		logger:     log.With(slog.String("handler", "line_webhook")),
		cfg:        cfg,
		dispatcher: dispatcher,
	}
}

// Register registers the callback routes.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET(h.cfg.Path, h.HandleProbe)
	e.POST(h.cfg.Path, h.Handle)
}

// HandleProbe responds to health/probe requests on the webhook URL.
func (h *WebhookHandler) HandleProbe(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Handle verifies, decodes and dispatches one webhook request. Once the
// signature is valid the response is 200 even if handling an event failed,
// so the platform does not redeliver.
func (h *WebhookHandler) Handle(c echo.Context) error {
	if h.dispatcher == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "line webhook dependencies not configured")
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, h.cfg.MaxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(payload)) > h.cfg.MaxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("payload too large: max %d bytes", h.cfg.MaxBodyBytes))
	}

	if err := VerifySignature(h.cfg.ChannelSecret, payload, c.Request().Header.Get(SignatureHeader)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var cb webhook.CallbackRequest
	if err := json.Unmarshal(payload, &cb); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid line webhook payload: %v", err))
	}

	events := ToEvents(&cb)
	if len(events) == 0 {
		return c.String(http.StatusOK, "OK")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), h.cfg.EventTimeout)
	defer cancel()

	if err := h.dispatcher.Dispatch(ctx, events); err != nil {
		h.logger.WarnContext(ctx, "Webhook events handled with errors", "events", len(events), "error", err)
	}

	return c.String(http.StatusOK, "OK")
}
