package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// QdrantIndex is a minimal REST client to a Qdrant collection, usable as an
// approximate-nearest-neighbor backend behind the Index interface. It assumes
// cosine distance and creates the collection if missing. Save and Load are
// no-ops: the collection is durable server-side.
type QdrantIndex struct {
	baseURL    string
	collection string
	dimension  int
	client     *http.Client
}

// NewQdrantIndex creates the index and ensures the collection exists.
func NewQdrantIndex(baseURL, collection string, dimension int) (*QdrantIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive")
	}
	q := &QdrantIndex{
		baseURL:    baseURL,
		collection: collection,
		dimension:  dimension,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
	body := map[string]any{
		"vectors": map[string]any{"size": dimension, "distance": "Cosine"},
	}
	if err := q.do(context.Background(), http.MethodPut, fmt.Sprintf("/collections/%s", collection), body, nil); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return q, nil
}

// Type returns the index type identifier.
func (q *QdrantIndex) Type() string {
	return string(IndexTypeQdrant)
}

// Add upserts points keyed by chunk ID.
func (q *QdrantIndex) Add(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	points := make([]map[string]any, len(ids))
	for i := range ids {
		if len(vectors[i]) != q.dimension {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vectors[i]), q.dimension)
		}
		points[i] = map[string]any{"id": ids[i], "vector": vectors[i]}
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", q.collection)
	return q.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil)
}

// Remove deletes points by chunk ID.
func (q *QdrantIndex) Remove(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", q.collection)
	return q.do(ctx, http.MethodPost, path, map[string]any{"points": ids}, nil)
}

// Search runs a top-k similarity search against the collection.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != q.dimension {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), q.dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	var out struct {
		Result []struct {
			ID    int64   `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", q.collection)
	if err := q.do(ctx, http.MethodPost, path, map[string]any{"vector": query, "limit": k}, &out); err != nil {
		return nil, err
	}
	results := make([]*Result, len(out.Result))
	for i, r := range out.Result {
		results[i] = &Result{ChunkID: r.ID, Score: r.Score}
	}
	return results, nil
}

// Save is a no-op; the collection is durable server-side.
func (q *QdrantIndex) Save(path string) error { return nil }

// Load is a no-op; the collection is durable server-side.
func (q *QdrantIndex) Load(path string) error { return nil }

// Size returns the number of points in the collection, or 0 when unreachable.
func (q *QdrantIndex) Size() int {
	var out struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/count", q.collection)
	if err := q.do(context.Background(), http.MethodPost, path, map[string]any{"exact": true}, &out); err != nil {
		return 0
	}
	return out.Result.Count
}

// Close is a no-op for QdrantIndex.
func (q *QdrantIndex) Close() error { return nil }

func (q *QdrantIndex) do(ctx context.Context, method, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant returned %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
