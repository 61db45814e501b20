// Package retriever answers free-text queries with ranked passages from
// the vector store.
//
// This is the quality dial of the whole system: limit and threshold jointly
// set retrieval precision/recall, and the caller tunes them per query.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/contextforge/recall/internal/log"
	"github.com/contextforge/recall/internal/store"
)

// Defaults applied when the caller passes no options.
const (
	DefaultLimit     = 5
	DefaultThreshold = 0.5
)

// ErrEmptyQuery indicates a query with no content after trimming.
var ErrEmptyQuery = errors.New("empty query")

// Embedder is the single-text embedding capability the retriever consumes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the similarity-search capability the retriever consumes.
// *store.Store satisfies it.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]store.SearchResult, error)
}

// Option configures a single Retrieve call.
type Option func(*searchConfig) error

type searchConfig struct {
	limit     int
	threshold float64
}

// WithLimit caps the number of results. Must be > 0.
func WithLimit(n int) Option {
	return func(c *searchConfig) error {
		if n <= 0 {
			return fmt.Errorf("limit must be > 0, got %d", n)
		}
		c.limit = n
		return nil
	}
}

// WithThreshold sets the minimum similarity a result must strictly exceed.
// Must be in [-1, 1].
func WithThreshold(v float64) Option {
	return func(c *searchConfig) error {
		if v < -1 || v > 1 {
			return fmt.Errorf("threshold must be in [-1, 1], got %v", v)
		}
		c.threshold = v
		return nil
	}
}

// Retriever turns a query into ranked, thresholded passages.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	logger   log.Logger
}

// New creates a Retriever.
func New(embedder Embedder, searcher Searcher, logger log.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, searcher: searcher, logger: logger}
}

// Retrieve embeds the query and returns stored chunks whose similarity
// strictly exceeds the threshold, ordered by descending similarity and
// truncated to the limit. No match is an empty result, not an error;
// upstream embedding or store failures are returned as such and are never
// folded into an empty result set.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	cfg := searchConfig{limit: DefaultLimit, threshold: DefaultThreshold}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.searcher.Search(ctx, embedding, cfg.limit, cfg.threshold)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	r.logger.Debug("retrieved passages",
		"results", len(results),
		"limit", cfg.limit,
		"threshold", cfg.threshold)

	return results, nil
}
