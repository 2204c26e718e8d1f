package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// File format: magic (8), dimension (4), count (4), then per entry:
// chunk ID (8) followed by dimension*4 bytes of little-endian float32.
var indexMagic = [8]byte{'T', 'E', 'I', 'A', 'N', 'V', 'X', '1'}

// MemoryIndex is an in-memory vector index using brute-force cosine search over
// normalized vectors. Exact search is acceptable at the corpus sizes targeted
// (thousands of chunks); larger corpora should use an ANN backend behind the
// same interface.
type MemoryIndex struct {
	dimension int
	vectors   map[int64][]float32
	mu        sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimension int) (*MemoryIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive")
	}
	return &MemoryIndex{
		dimension: dimension,
		vectors:   make(map[int64][]float32),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Add inserts vectors keyed by chunk ID, overwriting any existing entry for the
// same ID. Fails with ErrDimensionMismatch when a vector's length disagrees with
// the index dimension; no entries are written in that case.
func (m *MemoryIndex) Add(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	for i := range vectors {
		if len(vectors[i]) != m.dimension {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vectors[i]), m.dimension)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := make([]float32, m.dimension)
		copy(vec, vectors[i])
		m.vectors[id] = vec
	}
	return nil
}

// Remove deletes entries by chunk ID; missing IDs are a no-op.
func (m *MemoryIndex) Remove(ctx context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.vectors, id)
	}
	return nil
}

// Search returns the top-k entries by cosine similarity (inner product over
// normalized vectors). Ties are broken by ascending chunk ID for determinism.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), m.dimension)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.vectors) == 0 {
		return nil, nil
	}
	scored := make([]*Result, 0, len(m.vectors))
	for id, vec := range m.vectors {
		var dot float64
		for j := 0; j < m.dimension; j++ {
			dot += float64(query[j] * vec[j])
		}
		scored = append(scored, &Result{ChunkID: id, Score: dot})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ChunkID < scored[j].ChunkID
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Save persists the index to path. Directory is created if needed.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(indexMagic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimension)); err != nil {
		return fmt.Errorf("write dimension: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	// Stable entry order so identical contents serialize identically.
	ids := make([]int64, 0, len(m.vectors))
	for id := range m.vectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := binary.Write(f, binary.LittleEndian, id); err != nil {
			return fmt.Errorf("write chunk id: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(m.vectors[id])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents. A missing
// file leaves the index unchanged. A bad magic, a dimension disagreeing with the
// configured dimension, or a truncated payload (entry count disagreeing with the
// header) fails with ErrCorruptIndex; the caller must trigger a full rebuild.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var magic [8]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return fmt.Errorf("%w: short header: %v", ErrCorruptIndex, err)
	}
	if magic != indexMagic {
		return fmt.Errorf("%w: bad magic", ErrCorruptIndex)
	}
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("%w: read dimension: %v", ErrCorruptIndex, err)
	}
	if int(dim) != m.dimension {
		return fmt.Errorf("%w: file has dimension %d, index expects %d", ErrCorruptIndex, dim, m.dimension)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("%w: read count: %v", ErrCorruptIndex, err)
	}

	loaded := make(map[int64][]float32, n)
	buf := make([]byte, m.dimension*4)
	for i := uint32(0); i < n; i++ {
		var id int64
		if err := binary.Read(f, binary.LittleEndian, &id); err != nil {
			return fmt.Errorf("%w: entry %d of %d: read id: %v", ErrCorruptIndex, i, n, err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("%w: entry %d of %d: read vector: %v", ErrCorruptIndex, i, n, err)
		}
		loaded[id] = bytesToFloat32Slice(buf)
	}
	if len(loaded) != int(n) {
		return fmt.Errorf("%w: header count %d, loaded %d entries", ErrCorruptIndex, n, len(loaded))
	}

	m.mu.Lock()
	m.vectors = loaded
	m.mu.Unlock()
	return nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
