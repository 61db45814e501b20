package api

import (
	"net/http"

	"github.com/contextforge/recall/internal/log"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	pinger Pinger
	logger log.Logger
}

// NewHealthHandler creates a new health handler.
// pinger is the database dependency used for readiness checks.
func NewHealthHandler(pinger Pinger, logger log.Logger) *HealthHandler {
	return &HealthHandler{pinger: pinger, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness returns 200 OK if the database is reachable.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.pinger == nil {
		http.Error(w, "database not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
