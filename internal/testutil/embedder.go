package testutil

import (
	"context"
	"math"
	"strings"
)

// FakeEmbedder produces deterministic embeddings without any network
// dependency. Vectors of the requested dimension carry normalized letter
// frequencies in their first 26 components, so texts sharing words score
// high cosine similarity while unrelated texts score low.
type FakeEmbedder struct {
	Dimension int
}

// NewFakeEmbedder creates a fake embedder emitting vectors of dim components.
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{Dimension: dim}
}

// Embed returns the deterministic embedding for a single text.
func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return f.vector(text), nil
}

// EmbedBatch returns deterministic embeddings aligned with the input order.
func (f *FakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *FakeEmbedder) vector(text string) []float32 {
	vec := make([]float32, f.Dimension)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' && int(r-'a') < f.Dimension {
			vec[r-'a']++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1 // stable non-zero vector for letterless input
		return vec
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
