package api

import (
	"encoding/json"
	"net/http"

	"github.com/contextforge/recall/internal/log"
)

// writeJSON writes a JSON response with the given status code.
// If encoding fails after WriteHeader, the status code is already on the
// wire; the error is logged but the response cannot be corrected.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message}, logger)
}
