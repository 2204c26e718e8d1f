// Package vector provides vector index implementations for chunk embeddings.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length disagrees with the
// index's configured dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// ErrCorruptIndex is returned by Load when the persisted index fails its
// integrity check. The caller must trigger a full rebuild.
var ErrCorruptIndex = errors.New("corrupt vector index")

// Index defines vector storage and cosine similarity search over chunk embeddings.
// Implementations must be safe for concurrent use: searches may run in parallel,
// adds and removes take exclusive access.
type Index interface {
	// Add inserts vectors keyed by chunk ID, overwriting existing entries.
	Add(ctx context.Context, ids []int64, vectors [][]float32) error
	// Remove deletes entries by chunk ID; missing IDs are ignored.
	Remove(ctx context.Context, ids []int64) error
	// Search returns the k highest-similarity entries, ties broken by ascending
	// chunk ID. Returns fewer than k when the index holds fewer entries.
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	// Save persists the index to path; Load replaces in-memory contents from path.
	Save(path string) error
	Load(path string) error
	Size() int
	Type() string
	Close() error
}

// Result is a single vector search hit.
type Result struct {
	ChunkID int64
	Score   float64 // cosine similarity over normalized vectors, in [-1, 1]
}
