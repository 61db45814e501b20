// Package embedding converts text into fixed-dimension vectors using an
// OpenAI-compatible embeddings endpoint.
//
// All stored vectors and all query vectors must come from the same model;
// the client enforces the configured dimension on every response so a
// mixed-dimension corpus is caught before anything reaches the store.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/contextforge/recall/internal/log"
)

const (
	// DefaultModel produces 1536-dimension vectors, matching the schema.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimension is the fixed vector dimension of the corpus.
	DefaultDimension = 1536

	// DefaultTimeout bounds a single embeddings request.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond limits outbound request rate.
	DefaultRequestsPerSecond = 5
)

// embeddingsAPI is the slice of the OpenAI client the embedder consumes.
// *openai.Client satisfies it; tests substitute a mock.
type embeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Config configures the embedding client.
type Config struct {
	APIKey            string
	BaseURL           string // empty = api.openai.com
	Model             string
	Dimension         int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client is an embeddings client with batching, rate limiting and per-call
// timeouts. Safe for concurrent use.
type Client struct {
	api       embeddingsAPI
	model     openai.EmbeddingModel
	dimension int
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    log.Logger
}

// NewClient creates an embedding client from the given configuration.
func NewClient(cfg Config, logger log.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding: missing API key")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:       openai.NewClientWithConfig(clientCfg),
		model:     openai.EmbeddingModel(cfg.Model),
		dimension: cfg.Dimension,
		timeout:   cfg.Timeout,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:    logger,
	}, nil
}

// Dimension returns the fixed vector dimension this client produces.
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, "embed", []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts in a single request to the service.
// The returned slice is index-aligned with the input: len(out) == len(in)
// and out[i] is the vector for texts[i].
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return c.embed(ctx, "embedBatch", texts)
}

func (c *Client) embed(ctx context.Context, op string, texts []string) ([][]float32, error) {
	input := make([]string, len(texts))
	for i, t := range texts {
		// Embedding models are sensitive to literal newlines.
		input[i] = strings.ReplaceAll(t, "\n", " ")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ServiceError{Op: op, Transient: true, Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Input: input,
		Model: c.model,
	})
	if err != nil {
		return nil, &ServiceError{Op: op, Transient: isTransient(err), Err: err}
	}

	if len(resp.Data) != len(texts) {
		return nil, &ServiceError{
			Op:        op,
			Transient: false,
			Err:       fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)),
		}
	}

	// The API reports each vector's input position; order by it so the
	// output is index-aligned even if the response arrives shuffled.
	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		if len(d.Embedding) != c.dimension {
			return nil, &ServiceError{
				Op:        op,
				Transient: false,
				Err: fmt.Errorf("model returned %d-dimension vector, want %d",
					len(d.Embedding), c.dimension),
			}
		}
		vectors[i] = d.Embedding
	}

	c.logger.Debug("embedded texts", "op", op, "count", len(texts))
	return vectors, nil
}

// isTransient classifies an OpenAI client error: rate limits, server errors
// and transport failures may be retried; 4xx responses must not be.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	// Anything that never produced an HTTP response (timeouts, connection
	// failures) is a transport error.
	return true
}
