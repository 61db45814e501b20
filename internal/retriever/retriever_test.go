package retriever

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/contextforge/recall/internal/log"
	"github.com/contextforge/recall/internal/store"
)

// mockEmbedder returns a fixed vector per text.
type mockEmbedder struct {
	vectors   map[string][]float32
	err       error
	callCount int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.callCount++
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

// record is a stored row inside fakeSearcher. A record either carries an
// embedding (similarity computed against the query) or a fixed similarity
// for tests that need exact score control.
type record struct {
	id         int64
	content    string
	embedding  []float32
	similarity float64
}

// fakeSearcher implements the store's search semantics in memory: strict
// threshold, descending similarity, id-ascending tie-break, limit.
type fakeSearcher struct {
	records []record
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, embedding []float32, limit int, threshold float64) ([]store.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}

	var results []store.SearchResult
	for _, rec := range f.records {
		sim := rec.similarity
		if rec.embedding != nil {
			sim = cosine(embedding, rec.embedding)
		}
		if sim > threshold {
			results = append(results, store.SearchResult{
				ID:         rec.id,
				Content:    rec.content,
				Similarity: sim,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	r := New(&mockEmbedder{}, &fakeSearcher{}, log.NewNop())

	for _, q := range []string{"", "   ", "\n"} {
		if _, err := r.Retrieve(context.Background(), q); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Retrieve(%q) error = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestRetrieve_OptionValidation(t *testing.T) {
	r := New(&mockEmbedder{}, &fakeSearcher{}, log.NewNop())
	ctx := context.Background()

	if _, err := r.Retrieve(ctx, "query", WithLimit(0)); err == nil {
		t.Error("WithLimit(0) should fail")
	}
	if _, err := r.Retrieve(ctx, "query", WithLimit(-3)); err == nil {
		t.Error("WithLimit(-3) should fail")
	}
	if _, err := r.Retrieve(ctx, "query", WithThreshold(1.5)); err == nil {
		t.Error("WithThreshold(1.5) should fail")
	}
	if _, err := r.Retrieve(ctx, "query", WithThreshold(-1.5)); err == nil {
		t.Error("WithThreshold(-1.5) should fail")
	}
	if _, err := r.Retrieve(ctx, "query", WithThreshold(-1), WithLimit(1)); err != nil {
		t.Errorf("boundary values should be accepted, got %v", err)
	}
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	r := New(&mockEmbedder{}, &fakeSearcher{}, log.NewNop())

	results, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("empty corpus must not error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRetrieve_ThresholdStrictness(t *testing.T) {
	searcher := &fakeSearcher{records: []record{
		{id: 1, content: "exactly at threshold", similarity: 0.5},
		{id: 2, content: "just above threshold", similarity: 0.500001},
	}}
	r := New(&mockEmbedder{}, searcher, log.NewNop())

	results, err := r.Retrieve(context.Background(), "q", WithThreshold(0.5))
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (strict threshold)", len(results))
	}
	if results[0].ID != 2 {
		t.Errorf("got result %d, want the just-above record", results[0].ID)
	}
	if results[0].Similarity <= 0.5 {
		t.Errorf("returned similarity %v <= threshold", results[0].Similarity)
	}
}

func TestRetrieve_RankingAndLimit(t *testing.T) {
	searcher := &fakeSearcher{records: []record{
		{id: 1, content: "far", embedding: []float32{0.2, 1, 0}},
		{id: 2, content: "near", embedding: []float32{1, 0.1, 0}},
		{id: 3, content: "nearest", embedding: []float32{1, 0, 0}},
		{id: 4, content: "mid", embedding: []float32{1, 0.5, 0}},
	}}
	r := New(&mockEmbedder{}, searcher, log.NewNop())

	results, err := r.Retrieve(context.Background(), "q", WithThreshold(0.1), WithLimit(3))
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if len(results) > 3 {
		t.Fatalf("limit not respected: got %d results", len(results))
	}
	for i := 0; i < len(results)-1; i++ {
		if results[i].Similarity < results[i+1].Similarity {
			t.Errorf("results not in descending similarity order: %v", results)
		}
	}
	if results[0].Content != "nearest" {
		t.Errorf("top result = %q, want %q", results[0].Content, "nearest")
	}
}

func TestRetrieve_TieBreakByInsertionOrder(t *testing.T) {
	same := []float32{1, 0, 0}
	searcher := &fakeSearcher{records: []record{
		{id: 7, content: "second inserted", embedding: same},
		{id: 3, content: "first inserted", embedding: same},
	}}
	r := New(&mockEmbedder{}, searcher, log.NewNop())

	results, err := r.Retrieve(context.Background(), "q", WithThreshold(0.9))
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != 3 || results[1].ID != 7 {
		t.Errorf("tie not broken by id ascending: %v, %v", results[0].ID, results[1].ID)
	}
}

func TestRetrieve_EmbedderErrorPropagates(t *testing.T) {
	wantErr := errors.New("quota exhausted")
	r := New(&mockEmbedder{err: wantErr}, &fakeSearcher{}, log.NewNop())

	_, err := r.Retrieve(context.Background(), "q")
	if !errors.Is(err, wantErr) {
		t.Errorf("embedder error not propagated, got %v", err)
	}
}

func TestRetrieve_SearcherErrorPropagates(t *testing.T) {
	wantErr := errors.New("connection refused")
	r := New(&mockEmbedder{}, &fakeSearcher{err: wantErr}, log.NewNop())

	_, err := r.Retrieve(context.Background(), "q")
	if !errors.Is(err, wantErr) {
		t.Errorf("searcher error not propagated, got %v", err)
	}
}
