package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/contextforge/recall/internal/log"
	"github.com/contextforge/recall/internal/retriever"
	"github.com/contextforge/recall/internal/store"
)

// MaxRetrievalLimit bounds the limit a caller may request.
const MaxRetrievalLimit = 100

// PassageSearcher is the retrieval capability the retrieve handler consumes.
// *retriever.Retriever satisfies it.
type PassageSearcher interface {
	Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]store.SearchResult, error)
}

// RetrievalDefaults are the config-sourced fallbacks applied when a
// request omits limit or threshold.
type RetrievalDefaults struct {
	Limit     int
	Threshold float64
}

// RetrieveHandler handles retrieval endpoints.
type RetrieveHandler struct {
	searcher PassageSearcher
	defaults RetrievalDefaults
	logger   log.Logger
}

// NewRetrieveHandler creates a new retrieve handler.
// A zero-value defaults struct falls back to the retriever package
// defaults.
func NewRetrieveHandler(searcher PassageSearcher, defaults RetrievalDefaults, logger log.Logger) *RetrieveHandler {
	if defaults.Limit == 0 {
		defaults = RetrievalDefaults{
			Limit:     retriever.DefaultLimit,
			Threshold: retriever.DefaultThreshold,
		}
	}
	return &RetrieveHandler{searcher: searcher, defaults: defaults, logger: logger}
}

// RegisterRoutes registers retrieval routes on the given mux.
func (h *RetrieveHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/retrieve", h.retrieve)
}

// RetrieveRequest is the request body for retrieval.
// Limit and Threshold are optional; omitted values fall back to the
// configured defaults.
type RetrieveRequest struct {
	Query     string   `json:"query"`
	Limit     int      `json:"limit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Passage is one retrieved chunk with its similarity score.
type Passage struct {
	ID            int64   `json:"id"`
	DocumentID    string  `json:"document_id"`
	SequenceIndex int     `json:"sequence_index"`
	Content       string  `json:"content"`
	Similarity    float64 `json:"similarity"`
}

// RetrieveResponse is the response body for retrieval.
// Context is the passages joined into a single numbered block, ready to
// paste into a prompt.
type RetrieveResponse struct {
	Results []Passage `json:"results"`
	Context string    `json:"context"`
}

func (h *RetrieveHandler) retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest,
			"invalid_request", "invalid request body", h.logger)
		return
	}

	opts, err := h.buildOptions(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	results, err := h.searcher.Retrieve(r.Context(), req.Query, opts...)
	if err != nil {
		h.writeRetrieveError(w, err)
		return
	}

	resp := RetrieveResponse{
		Results: make([]Passage, 0, len(results)),
		Context: formatContext(results),
	}
	for _, res := range results {
		resp.Results = append(resp.Results, Passage{
			ID:            res.ID,
			DocumentID:    res.DocumentID.String(),
			SequenceIndex: res.SequenceIndex,
			Content:       res.Content,
			Similarity:    res.Similarity,
		})
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}

// buildOptions validates request parameters and converts them to
// retriever options. Absent fields take the handler's configured
// defaults.
func (h *RetrieveHandler) buildOptions(req RetrieveRequest) ([]retriever.Option, error) {
	limit := h.defaults.Limit
	if req.Limit != 0 {
		if req.Limit < 1 || req.Limit > MaxRetrievalLimit {
			return nil, fmt.Errorf("limit must be between 1 and %d, got %d", MaxRetrievalLimit, req.Limit)
		}
		limit = req.Limit
	}

	threshold := h.defaults.Threshold
	if req.Threshold != nil {
		if *req.Threshold < -1 || *req.Threshold > 1 {
			return nil, fmt.Errorf("threshold must be in [-1, 1], got %v", *req.Threshold)
		}
		threshold = *req.Threshold
	}

	return []retriever.Option{
		retriever.WithLimit(limit),
		retriever.WithThreshold(threshold),
	}, nil
}

// formatContext renders passages as a numbered context block.
func formatContext(results []store.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, res.Content)
	}
	return b.String()
}

func (h *RetrieveHandler) writeRetrieveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, retriever.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest,
			"empty_query", "query must not be empty", h.logger)
	case isEmbeddingError(err):
		h.logger.Error("embedding service failed during retrieval", "error", err)
		writeError(w, http.StatusBadGateway,
			"embedding_failed", "embedding service unavailable", h.logger)
	default:
		h.logger.Error("retrieval failed", "error", err)
		writeError(w, http.StatusInternalServerError,
			"retrieval_failed", "failed to retrieve passages", h.logger)
	}
}
