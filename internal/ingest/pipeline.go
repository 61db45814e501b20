// Package ingest turns one document's extracted text into stored,
// searchable chunk records.
//
// The pipeline is all-or-nothing per document: chunks are embedded first,
// and only a fully embedded document reaches the store, as a single atomic
// batch insert. A failure at any stage leaves zero persisted rows.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/contextforge/recall/internal/log"
	"github.com/contextforge/recall/internal/store"
)

// ErrEmptyDocument indicates a document with no extractable text. This is
// a normal failure reported to the caller, not a crash.
var ErrEmptyDocument = errors.New("document has no extractable text")

const (
	// maxEmbedBatch caps the inputs per embeddings request; large
	// documents are split into sub-batches and reassembled by index.
	maxEmbedBatch = 256

	// embedConcurrency bounds concurrent sub-batch requests per document.
	embedConcurrency = 4
)

// Chunker is the splitting capability the pipeline consumes.
type Chunker interface {
	Split(text string) []string
}

// BatchEmbedder is the batch embedding capability the pipeline consumes.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Inserter is the persistence capability the pipeline consumes.
// *store.Store satisfies it.
type Inserter interface {
	InsertChunks(ctx context.Context, documentID uuid.UUID, chunks []store.Chunk) (int64, error)
}

// Result reports a successful ingestion.
type Result struct {
	DocumentID    uuid.UUID
	ChunksCreated int
}

// Pipeline orchestrates chunking, embedding and storage for one document.
// Concurrent ingestions are independent; the pipeline holds no mutable
// state.
type Pipeline struct {
	chunker  Chunker
	embedder BatchEmbedder
	inserter Inserter
	logger   log.Logger
}

// New creates an ingestion pipeline.
func New(chunker Chunker, embedder BatchEmbedder, inserter Inserter, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		inserter: inserter,
		logger:   logger,
	}
}

// Ingest processes one document's extracted text. On success every chunk
// of the document is persisted under a fresh document id; on failure
// nothing is persisted and the error identifies the failing stage.
func (p *Pipeline) Ingest(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyDocument
	}

	contents := p.chunker.Split(text)
	if len(contents) == 0 {
		return Result{}, ErrEmptyDocument
	}

	vectors, err := p.embedAll(ctx, contents)
	if err != nil {
		// Typed embedding errors pass through for the caller's retry
		// policy; nothing has been persisted.
		return Result{}, err
	}

	chunks := make([]store.Chunk, len(contents))
	for i := range contents {
		chunks[i] = store.Chunk{Content: contents[i], Embedding: vectors[i]}
	}

	documentID := uuid.New()
	inserted, err := p.inserter.InsertChunks(ctx, documentID, chunks)
	if err != nil {
		return Result{}, fmt.Errorf("failed to store chunks: %w", err)
	}

	p.logger.Info("document ingested",
		"document_id", documentID,
		"chunks", inserted)

	return Result{DocumentID: documentID, ChunksCreated: int(inserted)}, nil
}

// embedAll embeds every chunk, splitting large documents into sub-batches
// with bounded concurrency. The output is index-aligned with the input; if
// any sub-batch fails the whole operation fails.
func (p *Pipeline) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))
		g.Go(func() error {
			vectors, err := p.embedder.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vectors) != end-start {
				return fmt.Errorf("got %d vectors for %d chunks", len(vectors), end-start)
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
