package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/contextforge/recall/internal/log"
)

// Dimension validation happens before any database access, so these tests
// run against a Store with no pool. Round-trip behavior is covered by the
// integration tests.

func TestInsertChunks_RejectsMixedDimensions(t *testing.T) {
	s := New(nil, 3, log.NewNop())

	chunks := []Chunk{
		{Content: "good", Embedding: []float32{1, 0, 0}},
		{Content: "bad", Embedding: []float32{1, 0}}, // wrong dimension
		{Content: "also good", Embedding: []float32{0, 1, 0}},
	}

	n, err := s.InsertChunks(context.Background(), uuid.New(), chunks)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if n != 0 {
		t.Errorf("inserted %d rows, want 0 for rejected batch", n)
	}
}

func TestInsertChunks_EmptyBatch(t *testing.T) {
	s := New(nil, 3, log.NewNop())

	n, err := s.InsertChunks(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
	if n != 0 {
		t.Errorf("inserted %d rows for empty batch", n)
	}
}

func TestSearch_RejectsWrongQueryDimension(t *testing.T) {
	s := New(nil, 3, log.NewNop())

	_, err := s.Search(context.Background(), []float32{1, 0}, 5, 0.5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestNew_DefaultDimension(t *testing.T) {
	s := New(nil, 0, nil)
	if s.dimension != Dimension {
		t.Errorf("dimension = %d, want schema default %d", s.dimension, Dimension)
	}
}
