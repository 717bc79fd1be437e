// Package server hosts the HTTP endpoint: the webhook callback, liveness
// probes, and the authenticated event log route.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/edgard/linerelay/internal/logger"
)

// Registrar adds routes to the server.
type Registrar interface {
	Register(e *echo.Echo)
}

// Server wraps the echo instance and its lifecycle.
type Server struct {
	echo            *echo.Echo
	addr            string
	shutdownTimeout time.Duration
	log             *slog.Logger
}

// NewServer creates the echo instance with the standard middleware and the
// given route registrars.
func NewServer(addr string, shutdownTimeout time.Duration, log *slog.Logger, registrars ...Registrar) *Server {
	if addr == "" {
		addr = ":10000"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// The request logger wraps Recover so panics are logged with their status.
	e.Use(logger.Middleware(log.With("component", "http")))
	e.Use(middleware.Recover())

	for _, r := range registrars {
		if r != nil {
			r.Register(e)
		}
	}

	return &Server{
		echo:            e,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		log:             log.With("component", "server"),
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully, waiting up
// to the shutdown timeout for in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.addr)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("HTTP server stopped")
	return nil
}
