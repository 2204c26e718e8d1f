// Package integration exercises the full stack: chunking, storage, vector
// search, the local-first orchestrator with a fake Wikipedia backend, and the
// suggestion pipeline end to end.
package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/teian/internal/cache"
	"github.com/hyperjump/teian/internal/embedding"
	"github.com/hyperjump/teian/internal/generate"
	"github.com/hyperjump/teian/internal/indexer"
	"github.com/hyperjump/teian/internal/models"
	"github.com/hyperjump/teian/internal/online"
	"github.com/hyperjump/teian/internal/retrieval"
	"github.com/hyperjump/teian/internal/storage"
	"github.com/hyperjump/teian/internal/suggest"
	"github.com/hyperjump/teian/internal/vector"
)

const dims = 128

func storageOpen(t *testing.T) (*storage.SQLiteStorage, error) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { store.Close() })
	return store, nil
}

type stack struct {
	indexer      *indexer.Indexer
	orchestrator *retrieval.Orchestrator
	pipeline     *suggest.Pipeline
	onlineCalls  *int64
}

// newStack wires real components with a fake Wikipedia server behind the
// online gateway. Every gateway request increments onlineCalls.
func newStack(t *testing.T) *stack {
	t.Helper()
	logger := zap.NewNop()

	store, err := storageOpen(t)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}

	var calls int64
	wiki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"query":{"pages":{
			"100":{"pageid":100,"title":"Goroutine","extract":"A goroutine is a lightweight thread.","index":1}
		}}}`))
	}))
	t.Cleanup(wiki.Close)

	embedder := embedding.NewHashEmbedder(dims)
	idx, err := vector.NewMemoryIndex(dims)
	if err != nil {
		t.Fatalf("NewMemoryIndex failed: %v", err)
	}
	chunker, err := indexer.NewChunker(512, 50)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}
	ix := indexer.New(store, embedder, idx, chunker, logger)

	results, err := cache.New(100, time.Hour, nil)
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	gateway := online.NewWikipediaGateway(online.WikipediaConfig{
		BaseURL:       wiki.URL,
		RatePerSecond: 100,
	})
	orch := retrieval.NewOrchestrator(embedder, idx, store, results, gateway,
		retrieval.Options{TopK: 5, SimilarityThreshold: 0.3, OnlineMaxResults: 3}, logger)

	pipeline := suggest.NewPipeline(orch, nil, generate.NewTemplateGenerator(),
		suggest.Options{Debounce: 10 * time.Millisecond, MinTriggerChars: 3}, logger)

	return &stack{indexer: ix, orchestrator: orch, pipeline: pipeline, onlineCalls: &calls}
}

func TestEndToEnd_LocalFirstRetrieval(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	content := "Goroutines are lightweight threads managed by the Go runtime."
	if _, err := s.indexer.IndexDocument(ctx, &models.Document{
		ID: "doc-1", Title: "Go Notes", Content: content,
	}); err != nil {
		t.Fatalf("IndexDocument failed: %v", err)
	}

	// Identical text embeds identically, so the hit clears the threshold
	// and the gateway must stay untouched.
	resp, err := s.orchestrator.Retrieve(ctx, content)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if resp.FallbackTriggered {
		t.Error("local hit must not trigger fallback")
	}
	if len(resp.Results) == 0 || resp.Results[0].Source != models.SourceLocal {
		t.Fatalf("expected local results, got %+v", resp.Results)
	}
	if got := atomic.LoadInt64(s.onlineCalls); got != 0 {
		t.Errorf("expected zero online calls, got %d", got)
	}
}

func TestEndToEnd_FallbackAndCache(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	// Nothing indexed: every query misses locally and falls back online.
	for i := 0; i < 3; i++ {
		resp, err := s.orchestrator.Retrieve(ctx, "what is a goroutine")
		if err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}
		if !resp.FallbackTriggered {
			t.Error("expected fallback on empty index")
		}
		if len(resp.Results) != 1 || resp.Results[0].Attribution != "Wikipedia: Goroutine" {
			t.Fatalf("unexpected online results: %+v", resp.Results)
		}
	}
	if got := atomic.LoadInt64(s.onlineCalls); got != 1 {
		t.Errorf("repeat queries should be served from cache, got %d online calls", got)
	}
}

func TestEndToEnd_SuggestionsFromIndexedContent(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	text := "Channels coordinate goroutines by passing values between them."
	if _, err := s.indexer.IndexDocument(ctx, &models.Document{
		ID: "doc-1", Title: "Concurrency", Content: text,
	}); err != nil {
		t.Fatalf("IndexDocument failed: %v", err)
	}

	ch := make(chan models.SuggestionResponse, 1)
	session := s.pipeline.NewSession(func(r models.SuggestionResponse) { ch <- r })
	defer session.Close()

	id := session.Submit(text)

	select {
	case resp := <-ch:
		if resp.RequestID != id {
			t.Errorf("delivered request %d, submitted %d", resp.RequestID, id)
		}
		if len(resp.Suggestions) == 0 {
			t.Fatal("expected suggestions from indexed content")
		}
		if resp.Suggestions[0].Source != models.SourceLocal {
			t.Errorf("expected local-sourced suggestion, got %+v", resp.Suggestions[0])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for suggestions")
	}
	if got := atomic.LoadInt64(s.onlineCalls); got != 0 {
		t.Errorf("local content should keep suggestions offline, got %d calls", got)
	}
}

func TestEndToEnd_SupersessionDeliversLatestOnly(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	if _, err := s.indexer.IndexDocument(ctx, &models.Document{
		ID: "doc-1", Content: "Select statements wait on multiple channel operations.",
	}); err != nil {
		t.Fatalf("IndexDocument failed: %v", err)
	}

	var delivered []uint64
	ch := make(chan models.SuggestionResponse, 4)
	session := s.pipeline.NewSession(func(r models.SuggestionResponse) { ch <- r })
	defer session.Close()

	session.Submit("select statements")
	session.Submit("select statements wait")
	last := session.Submit("select statements wait on channels")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case resp := <-ch:
			delivered = append(delivered, resp.RequestID)
			if resp.RequestID == last {
				if len(delivered) != 1 {
					t.Errorf("superseded requests were delivered: %v", delivered)
				}
				return
			}
		case <-deadline:
			t.Fatalf("latest request never delivered; got %v", delivered)
		}
	}
}
