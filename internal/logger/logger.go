// Package logger provides structured logging functionality for the relay.
// It uses Go's slog package for logging with configurable levels and formats.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// NewLogger creates a new slog Logger with the specified level and format.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := newLogger(os.Stdout, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a configured level name to a slog level. Unknown names map to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RequestIDHeader carries the request identifier in responses.
const RequestIDHeader = echo.HeaderXRequestID

// Middleware creates a logging middleware for the HTTP server.
// It tags every request with an ID and logs its start and completion.
func Middleware(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			startTime := time.Now()
			req := c.Request()

			requestID := req.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(RequestIDHeader, requestID)

			logEntry := log.With(
				"request_id", requestID,
				"method", req.Method,
				"path", c.Path(),
				"remote_ip", c.RealIP(),
			)

			logEntry.DebugContext(req.Context(), "Processing request", "content_length", req.ContentLength)

			err := next(c)
			if err != nil {
				// Let echo render the error so the logged status matches the response.
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []any{"status", status, "duration", time.Since(startTime)}
			switch {
			case status >= 500:
				logEntry.ErrorContext(req.Context(), "Finished processing request", append(attrs, "error", err)...)
			case status >= 400:
				logEntry.WarnContext(req.Context(), "Finished processing request", append(attrs, "error", err)...)
			default:
				logEntry.InfoContext(req.Context(), "Finished processing request", attrs...)
			}
			return nil
		}
	}
}

// Truncate shortens s to at most maxLen bytes without splitting a UTF-8 sequence.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
