// Package api exposes the notification subsystem over HTTP: send
// endpoints, carrier webhooks, tracking endpoints, and analytics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/drivelane/service-crm/internal/config"
)

// Server is the HTTP server wrapping the service layer.
type Server struct {
	config   config.ServerConfig
	handler  http.Handler
	handlers *Handlers
	server   *http.Server
}

// NewServer wires the router and middleware around the given handlers.
func NewServer(cfg config.ServerConfig, links config.LinksConfig, h *Handlers) *Server {
	return &Server{
		config:   cfg,
		handler:  setupRoutes(cfg, links, h),
		handlers: h,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
