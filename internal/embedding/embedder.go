// Package embedding provides text embedding gateways and caching.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the backing embedding model cannot be
// reached or loaded. Callers abort the in-progress indexing or query step.
var ErrUnavailable = errors.New("embedding gateway unavailable")

// Embedder produces fixed-length vector embeddings for text.
// Embed is deterministic: identical text yields identical vectors.
// Returned vectors are unit-normalized for cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
