package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/contextforge/recall/internal/embedding"
	"github.com/contextforge/recall/internal/ingest"
	"github.com/contextforge/recall/internal/log"
)

// MaxDocumentBytes caps the ingestion request body.
const MaxDocumentBytes = 10 << 20 // 10 MiB

// Ingester is the ingestion capability the documents handler consumes.
// *ingest.Pipeline satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, text string) (ingest.Result, error)
}

// DocumentsHandler handles document ingestion endpoints.
type DocumentsHandler struct {
	ingester Ingester
	logger   log.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(ingester Ingester, logger log.Logger) *DocumentsHandler {
	return &DocumentsHandler{ingester: ingester, logger: logger}
}

// RegisterRoutes registers document routes on the given mux.
func (h *DocumentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/documents", h.create)
}

// IngestRequest is the request body for document ingestion.
type IngestRequest struct {
	Text string `json:"text"`
}

// IngestResponse is the response body for a successful ingestion.
type IngestResponse struct {
	DocumentID    string `json:"document_id"`
	ChunksCreated int    `json:"chunks_created"`
}

// create ingests a document: chunk, embed, store. All or nothing; a
// failure anywhere leaves no rows behind.
func (h *DocumentsHandler) create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxDocumentBytes)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				"document_too_large", "document exceeds the 10 MiB limit", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest,
			"invalid_request", "invalid request body", h.logger)
		return
	}

	result, err := h.ingester.Ingest(r.Context(), req.Text)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{
		DocumentID:    result.DocumentID.String(),
		ChunksCreated: result.ChunksCreated,
	}, h.logger)
}

// writeIngestError maps pipeline failures to HTTP status codes.
func (h *DocumentsHandler) writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrEmptyDocument):
		writeError(w, http.StatusBadRequest,
			"empty_document", "document has no extractable text", h.logger)
	case isEmbeddingError(err):
		h.logger.Error("embedding service failed during ingestion", "error", err)
		writeError(w, http.StatusBadGateway,
			"embedding_failed", "embedding service unavailable", h.logger)
	default:
		h.logger.Error("ingestion failed", "error", err)
		writeError(w, http.StatusInternalServerError,
			"ingestion_failed", "failed to ingest document", h.logger)
	}
}

// isEmbeddingError reports whether err originated in the embedding service.
func isEmbeddingError(err error) bool {
	var svcErr *embedding.ServiceError
	return errors.As(err, &svcErr)
}
