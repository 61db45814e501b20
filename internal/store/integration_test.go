//go:build integration

package store_test

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextforge/recall/internal/log"
	"github.com/contextforge/recall/internal/store"
	"github.com/contextforge/recall/internal/testutil"
)

// basisVec returns the unit vector with a 1 at index i. Basis vectors give
// exact cosine similarities (1 against themselves, 0 against each other),
// which keeps threshold assertions free of floating point slack.
func basisVec(i int) []float32 {
	v := make([]float32, store.Dimension)
	v[i] = 1
	return v
}

// mixVec returns a unit vector between basis 0 and basis 1; its cosine
// similarity against basisVec(0) is a.
func mixVec(a float64) []float32 {
	v := make([]float32, store.Dimension)
	v[0] = float32(a)
	v[1] = float32(math.Sqrt(1 - a*a))
	return v
}

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	st := store.New(tdb.Pool, store.Dimension, log.NewNop())

	t.Run("empty corpus returns no results", func(t *testing.T) {
		testutil.TruncateDocuments(t, tdb.Pool)

		results, err := st.Search(ctx, basisVec(0), 5, 0.0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("insert and search round trip", func(t *testing.T) {
		testutil.TruncateDocuments(t, tdb.Pool)

		docID := uuid.New()
		inserted, err := st.InsertChunks(ctx, docID, []store.Chunk{
			{Content: "first chunk", Embedding: basisVec(0)},
			{Content: "second chunk", Embedding: basisVec(1)},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), inserted)

		results, err := st.Search(ctx, basisVec(0), 5, 0.5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "first chunk", results[0].Content)
		assert.Equal(t, docID, results[0].DocumentID)
		assert.Equal(t, 0, results[0].SequenceIndex)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	})

	t.Run("threshold is strictly exceeded", func(t *testing.T) {
		testutil.TruncateDocuments(t, tdb.Pool)

		_, err := st.InsertChunks(ctx, uuid.New(), []store.Chunk{
			{Content: "orthogonal", Embedding: basisVec(1)},
		})
		require.NoError(t, err)

		// Similarity against basisVec(0) is exactly 0. A threshold of 0
		// must exclude it; anything below 0 must include it.
		results, err := st.Search(ctx, basisVec(0), 5, 0.0)
		require.NoError(t, err)
		assert.Empty(t, results, "similarity equal to threshold must be excluded")

		results, err = st.Search(ctx, basisVec(0), 5, -0.01)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("results ordered by similarity descending", func(t *testing.T) {
		testutil.TruncateDocuments(t, tdb.Pool)

		_, err := st.InsertChunks(ctx, uuid.New(), []store.Chunk{
			{Content: "weak match", Embedding: mixVec(0.6)},
			{Content: "exact match", Embedding: basisVec(0)},
			{Content: "good match", Embedding: mixVec(0.9)},
		})
		require.NoError(t, err)

		results, err := st.Search(ctx, basisVec(0), 5, 0.0)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "exact match", results[0].Content)
		assert.Equal(t, "good match", results[1].Content)
		assert.Equal(t, "weak match", results[2].Content)
		assert.True(t, results[0].Similarity >= results[1].Similarity)
		assert.True(t, results[1].Similarity >= results[2].Similarity)
	})

	t.Run("ties broken by insertion order", func(t *testing.T) {
		testutil.TruncateDocuments(t, tdb.Pool)

		_, err := st.InsertChunks(ctx, uuid.New(), []store.Chunk{
			{Content: "twin a", Embedding: basisVec(0)},
			{Content: "twin b", Embedding: basisVec(0)},
		})
		require.NoError(t, err)

		results, err := st.Search(ctx, basisVec(0), 5, 0.5)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "twin a", results[0].Content)
		assert.Equal(t, "twin b", results[1].Content)
		assert.Less(t, results[0].ID, results[1].ID)
	})

	t.Run("limit truncates results", func(t *testing.T) {
		testutil.TruncateDocuments(t, tdb.Pool)

		_, err := st.InsertChunks(ctx, uuid.New(), []store.Chunk{
			{Content: "a", Embedding: basisVec(0)},
			{Content: "b", Embedding: mixVec(0.9)},
			{Content: "c", Embedding: mixVec(0.8)},
		})
		require.NoError(t, err)

		results, err := st.Search(ctx, basisVec(0), 2, 0.0)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("duplicate content is permitted", func(t *testing.T) {
		testutil.TruncateDocuments(t, tdb.Pool)

		_, err := st.InsertChunks(ctx, uuid.New(), []store.Chunk{
			{Content: "same words", Embedding: basisVec(0)},
		})
		require.NoError(t, err)
		_, err = st.InsertChunks(ctx, uuid.New(), []store.Chunk{
			{Content: "same words", Embedding: basisVec(0)},
		})
		require.NoError(t, err)

		count, err := st.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("batch insert is atomic", func(t *testing.T) {
		testutil.TruncateDocuments(t, tdb.Pool)

		_, err := st.InsertChunks(ctx, uuid.New(), []store.Chunk{
			{Content: "valid", Embedding: basisVec(0)},
			{Content: "wrong dimension", Embedding: []float32{1, 2, 3}},
		})
		require.ErrorIs(t, err, store.ErrDimensionMismatch)

		count, err := st.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count, "failed batch must leave no rows")
	})

	t.Run("insert honors context cancellation", func(t *testing.T) {
		testutil.TruncateDocuments(t, tdb.Pool)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := st.InsertChunks(cancelled, uuid.New(), []store.Chunk{
			{Content: "never lands", Embedding: basisVec(0)},
		})
		require.Error(t, err)

		count, err := st.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count, "cancelled insert must leave no rows")
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, st.Ping(ctx))
	})
}
