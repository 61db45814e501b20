package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contextforge/recall/internal/chunker"
	"github.com/contextforge/recall/internal/config"
	"github.com/contextforge/recall/internal/embedding"
	"github.com/contextforge/recall/internal/ingest"
	"github.com/contextforge/recall/internal/log"
	"github.com/contextforge/recall/internal/retriever"
	"github.com/contextforge/recall/internal/store"
)

// app bundles the wired components behind the CLI commands.
type app struct {
	pool      *pgxpool.Pool
	store     *store.Store
	embedder  *embedding.Client
	pipeline  *ingest.Pipeline
	retriever *retriever.Retriever
}

// newApp connects to the database and wires all components from
// configuration. Callers must Close the returned app.
func newApp(ctx context.Context, cfg *config.Config, logger log.Logger) (*app, error) {
	pool, err := store.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	st := store.New(pool, cfg.EmbeddingDimension, logger.With("component", "store"))

	embedder, err := embedding.NewClient(embedding.Config{
		APIKey:            cfg.OpenAIAPIKey,
		BaseURL:           cfg.OpenAIBaseURL,
		Model:             cfg.EmbeddingModel,
		Dimension:         cfg.EmbeddingDimension,
		Timeout:           cfg.EmbeddingTimeout,
		RequestsPerSecond: cfg.EmbeddingRPS,
	}, logger.With("component", "embedding"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	split, err := chunker.New(chunker.Config{
		Size:       cfg.ChunkSize,
		Overlap:    cfg.ChunkOverlap,
		Separators: cfg.ChunkSeparators,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	return &app{
		pool:      pool,
		store:     st,
		embedder:  embedder,
		pipeline:  ingest.New(split, embedder, st, logger.With("component", "ingest")),
		retriever: retriever.New(embedder, st, logger.With("component", "retriever")),
	}, nil
}

// Close releases the database pool.
func (a *app) Close() {
	a.pool.Close()
}
