// Package api provides the HTTP REST API for recall.
//
// Endpoints:
//
//	POST /api/documents  →  chunk, embed, and store a document
//	POST /api/retrieve   →  ranked passages for a free-text query
//	GET  /health         →  liveness probe
//	GET  /ready          →  readiness probe (pings the database)
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: Health check endpoints (/health, /ready)
//   - documents.go: Document ingestion endpoint
//   - retrieve.go: Retrieval endpoint
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/contextforge/recall/internal/log"
	"github.com/contextforge/recall/internal/store"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = ":8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Ingestion of large documents embeds many chunks, so this is generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Pinger is the database reachability check consumed by the readiness probe.
// *store.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for recall's REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health    *HealthHandler
	documents *DocumentsHandler
	retrieve  *RetrieveHandler
}

// NewServer creates a new HTTP server with all routes registered.
// defaults supplies the configured retrieval limit and threshold applied
// when a request omits them.
func NewServer(pinger Pinger, ingester Ingester, searcher PassageSearcher, defaults RetrievalDefaults, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:       mux,
		logger:    logger,
		health:    NewHealthHandler(pinger, logger),
		documents: NewDocumentsHandler(ingester, logger),
		retrieve:  NewRetrieveHandler(searcher, defaults, logger),
	}

	s.health.RegisterRoutes(mux)
	s.documents.RegisterRoutes(mux)
	s.retrieve.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

var _ Pinger = (*store.Store)(nil)
