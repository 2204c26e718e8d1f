package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search with file persistence.
	// Good for small corpora (<10k vectors).
	IndexTypeMemory IndexType = "memory"
	// IndexTypeQdrant uses a Qdrant collection over its REST API for ANN search.
	IndexTypeQdrant IndexType = "qdrant"
)

// Options configures backend-specific settings for NewIndex.
type Options struct {
	QdrantURL        string
	QdrantCollection string
}

// NewIndex creates a vector index of the specified type.
// Supported types: "memory" (default), "qdrant".
func NewIndex(indexType string, dimension int, opts Options) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimension)
	case IndexTypeQdrant:
		if opts.QdrantURL == "" {
			return nil, fmt.Errorf("qdrant index requires qdrant_url")
		}
		return NewQdrantIndex(opts.QdrantURL, opts.QdrantCollection, dimension)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, qdrant)", indexType)
	}
}
