// Package store persists chunk embeddings in PostgreSQL with pgvector and
// answers approximate nearest-neighbor queries over them.
//
// The on-disk contract is the documents table (see db/migrations): rows are
// append-only, ids are assigned by the database, and an HNSW index over the
// embedding column keyed on cosine distance serves similarity search.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/contextforge/recall/internal/log"
)

// Dimension is the fixed embedding dimension of the corpus schema.
// It must match the vector(1536) column in db/migrations.
const Dimension = 1536

// queryTimeout bounds a single vector search so a slow scan cannot block
// the caller indefinitely.
const queryTimeout = 10 * time.Second

// insertTimeout bounds a whole insert batch. Wider than queryTimeout since a
// large document can queue hundreds of rows in one transaction.
const insertTimeout = 30 * time.Second

// ErrDimensionMismatch indicates an embedding whose dimension does not
// match the schema. The offending batch is rejected in its entirety.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Chunk is one retrievable unit to be persisted: the passage text plus its
// embedding vector.
type Chunk struct {
	Content   string
	Embedding []float32
}

// SearchResult is one ranked hit from a similarity query. Transient; never
// persisted.
type SearchResult struct {
	ID            int64
	DocumentID    uuid.UUID
	SequenceIndex int
	Content       string
	Similarity    float64
}

// Store manages chunk records backed by PostgreSQL + pgvector.
// Safe for concurrent use; durability and per-batch atomicity come from
// the database's transaction semantics.
type Store struct {
	pool      *pgxpool.Pool
	dimension int
	logger    log.Logger
}

// New creates a Store over the given connection pool.
// dimension <= 0 selects the schema default.
func New(pool *pgxpool.Pool, dimension int, logger log.Logger) *Store {
	if dimension <= 0 {
		dimension = Dimension
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, dimension: dimension, logger: logger}
}

const insertChunkSQL = `
INSERT INTO documents (document_id, sequence_index, content, embedding)
VALUES ($1, $2, $3, $4)`

// InsertChunks appends all chunks of one document in a single transaction.
// Ids are assigned by the database in insertion order; duplicate content is
// permitted. Every embedding is validated against the configured dimension
// before any row is written, so a mixed-dimension batch leaves the table
// untouched and returns ErrDimensionMismatch.
func (s *Store) InsertChunks(ctx context.Context, documentID uuid.UUID, chunks []Chunk) (int64, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	for i, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return 0, fmt.Errorf("%w: chunk %d has dimension %d, want %d",
				ErrDimensionMismatch, i, len(c.Embedding), s.dimension)
		}
	}

	insertCtx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()

	tx, err := s.pool.Begin(insertCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin insert transaction: %w", err)
	}
	defer func() {
		// No-op after commit.
		_ = tx.Rollback(insertCtx)
	}()

	batch := &pgx.Batch{}
	for i, c := range chunks {
		batch.Queue(insertChunkSQL, documentID, i, c.Content, pgvector.NewVector(c.Embedding))
	}

	results := tx.SendBatch(insertCtx, batch)
	for range chunks {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("failed to insert chunk batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close insert batch: %w", err)
	}

	if err := tx.Commit(insertCtx); err != nil {
		return 0, fmt.Errorf("failed to commit chunk batch: %w", err)
	}

	s.logger.Debug("inserted chunks", "document_id", documentID, "count", len(chunks))
	return int64(len(chunks)), nil
}

// The distance operator appears in ORDER BY so the HNSW index drives the
// scan; similarity is 1 - cosine distance. Threshold comparison is strict.
const searchSQL = `
SELECT id, document_id, sequence_index, content,
       1 - (embedding <=> $1) AS similarity
FROM documents
WHERE 1 - (embedding <=> $1) > $2
ORDER BY embedding <=> $1, id
LIMIT $3`

// Search returns up to limit chunks whose cosine similarity to the query
// embedding strictly exceeds threshold, ordered by descending similarity
// with insertion id as the tie-break. An empty corpus or no match yields an
// empty slice, not an error.
func (s *Store) Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]SearchResult, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, searchSQL, pgvector.NewVector(embedding), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	results := make([]SearchResult, 0, limit)
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.SequenceIndex, &r.Content, &r.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search rows failed: %w", err)
	}

	return results, nil
}

// Count returns the total number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int64
	if err := s.pool.QueryRow(queryCtx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return count, nil
}

// Ping reports whether the database is reachable. Used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
