package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newEmbeddingsServer(t *testing.T, dims int, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		emb := make([]float32, dims)
		emb[0] = 1
		json.NewEncoder(w).Encode(embeddingsResponse{
			Data: []struct {
				Embedding []float32 `json:"embedding"`
			}{{Embedding: emb}},
		})
	}))
}

func TestRemoteEmbedder_Embed(t *testing.T) {
	var calls int64
	srv := newEmbeddingsServer(t, 4, &calls)
	defer srv.Close()

	e, err := NewRemoteEmbedder(RemoteConfig{BaseURL: srv.URL, Model: "test-model", Dimensions: 4})
	if err != nil {
		t.Fatalf("NewRemoteEmbedder failed: %v", err)
	}
	defer e.Close()

	emb, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(emb) != 4 {
		t.Fatalf("expected 4 dims, got %d", len(emb))
	}
	if emb[0] != 1 {
		t.Errorf("expected normalized [1 0 0 0], got %v", emb)
	}
}

func TestRemoteEmbedder_CachesByText(t *testing.T) {
	var calls int64
	srv := newEmbeddingsServer(t, 4, &calls)
	defer srv.Close()

	e, err := NewRemoteEmbedder(RemoteConfig{BaseURL: srv.URL, Dimensions: 4})
	if err != nil {
		t.Fatalf("NewRemoteEmbedder failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := e.Embed(context.Background(), "same text"); err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
}

func TestRemoteEmbedder_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e, err := NewRemoteEmbedder(RemoteConfig{BaseURL: srv.URL, Dimensions: 4})
	if err != nil {
		t.Fatalf("NewRemoteEmbedder failed: %v", err)
	}
	_, err = e.Embed(context.Background(), "hello")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestRemoteEmbedder_DimensionMismatch(t *testing.T) {
	var calls int64
	srv := newEmbeddingsServer(t, 8, &calls)
	defer srv.Close()

	e, err := NewRemoteEmbedder(RemoteConfig{BaseURL: srv.URL, Dimensions: 4})
	if err != nil {
		t.Fatalf("NewRemoteEmbedder failed: %v", err)
	}
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected error for mismatched dimensions")
	}
}

func TestRemoteEmbedder_RequiresBaseURL(t *testing.T) {
	if _, err := NewRemoteEmbedder(RemoteConfig{Dimensions: 4}); err == nil {
		t.Error("expected error for missing base URL")
	}
}
