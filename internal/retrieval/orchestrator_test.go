package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/teian/internal/cache"
	"github.com/hyperjump/teian/internal/models"
	"github.com/hyperjump/teian/internal/storage"
	"github.com/hyperjump/teian/internal/vector"
)

// fixedEmbedder returns canned vectors per text so tests control similarity.
type fixedEmbedder struct {
	vectors map[string][]float32
	dims    int
}

func (e *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, e.dims), nil
}

func (e *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *fixedEmbedder) Dimensions() int { return e.dims }
func (e *fixedEmbedder) Close() error    { return nil }

type fakeGateway struct {
	calls   int64
	results []models.SearchResult
	err     error
}

func (g *fakeGateway) Search(_ context.Context, _ string, _ int) ([]models.SearchResult, error) {
	atomic.AddInt64(&g.calls, 1)
	if g.err != nil {
		return nil, g.err
	}
	return g.results, nil
}

type fixture struct {
	orch    *Orchestrator
	gateway *fakeGateway
	chunkID int64
}

// newFixture indexes one chunk whose embedding is the unit x-axis vector.
// "near" queries embed close to it; "far" queries embed orthogonal.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	doc := &models.Document{ID: "doc-1", Title: "Go Notes", Content: "goroutines are cheap"}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	chunks := []*models.Chunk{{DocumentID: "doc-1", Text: "goroutines are cheap", ChunkIndex: 0, EndOffset: 20}}
	if err := store.InsertChunks(ctx, chunks); err != nil {
		t.Fatalf("InsertChunks failed: %v", err)
	}

	idx, err := vector.NewMemoryIndex(3)
	if err != nil {
		t.Fatalf("NewMemoryIndex failed: %v", err)
	}
	if err := idx.Add(ctx, []int64{chunks[0].ID}, [][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("index Add failed: %v", err)
	}

	embedder := &fixedEmbedder{
		dims: 3,
		vectors: map[string][]float32{
			"near": {0.9, 0.436, 0},
			"far":  {0, 1, 0},
		},
	}
	results, err := cache.New(10, time.Hour, nil)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	gateway := &fakeGateway{results: []models.SearchResult{
		{Text: "online answer", Score: 0.5, Source: models.SourceOnline, Attribution: "Wikipedia: Goroutine"},
	}}

	orch := NewOrchestrator(embedder, idx, store, results, gateway,
		Options{TopK: 5, SimilarityThreshold: 0.3, OnlineMaxResults: 3}, zap.NewNop())
	return &fixture{orch: orch, gateway: gateway, chunkID: chunks[0].ID}
}

func TestOrchestrator_LocalHitSkipsOnline(t *testing.T) {
	f := newFixture(t)

	resp, err := f.orch.Retrieve(context.Background(), "near")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if resp.FallbackTriggered {
		t.Error("fallback should not trigger on a local hit")
	}
	if got := atomic.LoadInt64(&f.gateway.calls); got != 0 {
		t.Errorf("expected zero online calls, got %d", got)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Source != models.SourceLocal || r.ChunkID != f.chunkID {
		t.Errorf("unexpected result: %+v", r)
	}
	if r.Text != "goroutines are cheap" {
		t.Errorf("chunk text not hydrated: %q", r.Text)
	}
	if r.Attribution != "Go Notes" {
		t.Errorf("expected document title attribution, got %q", r.Attribution)
	}
}

func TestOrchestrator_FallbackBelowThreshold(t *testing.T) {
	f := newFixture(t)

	resp, err := f.orch.Retrieve(context.Background(), "far")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if !resp.FallbackTriggered {
		t.Error("expected fallback for below-threshold query")
	}
	if got := atomic.LoadInt64(&f.gateway.calls); got != 1 {
		t.Errorf("expected 1 online call, got %d", got)
	}
	if len(resp.Results) != 1 || resp.Results[0].Source != models.SourceOnline {
		t.Errorf("expected online results, got %+v", resp.Results)
	}
}

func TestOrchestrator_FallbackCachedAfterFirstCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		resp, err := f.orch.Retrieve(ctx, "far")
		if err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}
		if !resp.FallbackTriggered {
			t.Error("expected fallback on every miss")
		}
		if len(resp.Results) != 1 {
			t.Errorf("expected cached results on repeat, got %d", len(resp.Results))
		}
	}
	if got := atomic.LoadInt64(&f.gateway.calls); got != 1 {
		t.Errorf("repeated queries should hit the cache: %d online calls", got)
	}
}

func TestOrchestrator_OnlineFailureIsSoft(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = errors.New("network down")

	resp, err := f.orch.Retrieve(context.Background(), "far")
	if err != nil {
		t.Fatalf("online failure should not fail retrieval: %v", err)
	}
	if !resp.FallbackTriggered {
		t.Error("expected FallbackTriggered even when online fails")
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected empty results, got %+v", resp.Results)
	}
}

func TestOrchestrator_FailedOnlineCallNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.err = errors.New("network down")
	if _, err := f.orch.Retrieve(ctx, "far"); err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	f.gateway.err = nil
	resp, err := f.orch.Retrieve(ctx, "far")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("recovered gateway should serve results, got %d", len(resp.Results))
	}
	if got := atomic.LoadInt64(&f.gateway.calls); got != 2 {
		t.Errorf("failure must not be cached: %d online calls", got)
	}
}

func TestOrchestrator_EmptyQuery(t *testing.T) {
	f := newFixture(t)

	resp, err := f.orch.Retrieve(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(resp.Results) != 0 || resp.FallbackTriggered {
		t.Errorf("empty query should return empty local response: %+v", resp)
	}
	if got := atomic.LoadInt64(&f.gateway.calls); got != 0 {
		t.Errorf("empty query must not reach online: %d calls", got)
	}
}

func TestOrchestrator_ResultsOrderedByScore(t *testing.T) {
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	defer store.Close()

	_ = store.CreateDocument(ctx, &models.Document{ID: "doc-1", Content: "x"})
	chunks := []*models.Chunk{
		{DocumentID: "doc-1", Text: "close match", ChunkIndex: 0, EndOffset: 11},
		{DocumentID: "doc-1", Text: "closer match", ChunkIndex: 1, EndOffset: 12},
	}
	if err := store.InsertChunks(ctx, chunks); err != nil {
		t.Fatalf("InsertChunks failed: %v", err)
	}

	idx, err := vector.NewMemoryIndex(2)
	if err != nil {
		t.Fatalf("NewMemoryIndex failed: %v", err)
	}
	_ = idx.Add(ctx, []int64{chunks[0].ID, chunks[1].ID}, [][]float32{
		{0.8, 0.6},
		{1, 0},
	})

	embedder := &fixedEmbedder{dims: 2, vectors: map[string][]float32{"q": {1, 0}}}
	results, _ := cache.New(10, time.Hour, nil)
	orch := NewOrchestrator(embedder, idx, store, results, nil,
		Options{TopK: 5, SimilarityThreshold: 0.3}, zap.NewNop())

	resp, err := orch.Retrieve(ctx, "q")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].Text != "closer match" {
		t.Errorf("results not ordered by score: %q first", resp.Results[0].Text)
	}
}
