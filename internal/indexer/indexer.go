package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/teian/internal/embedding"
	"github.com/hyperjump/teian/internal/fileid"
	"github.com/hyperjump/teian/internal/models"
	"github.com/hyperjump/teian/internal/storage"
	"github.com/hyperjump/teian/internal/vector"
)

// Indexer ingests documents: chunk, embed, persist, and register vectors.
type Indexer struct {
	store    storage.Storage
	embedder embedding.Embedder
	index    vector.Index
	chunker  *Chunker
	logger   *zap.Logger
}

// New creates an Indexer.
func New(store storage.Storage, embedder embedding.Embedder, index vector.Index, chunker *Chunker, logger *zap.Logger) *Indexer {
	return &Indexer{
		store:    store,
		embedder: embedder,
		index:    index,
		chunker:  chunker,
		logger:   logger,
	}
}

// IndexDocument upserts a document and replaces its chunks and vectors.
// Returns the number of chunks indexed.
func (ix *Indexer) IndexDocument(ctx context.Context, doc *models.Document) (int, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("document ID is required")
	}

	if err := ix.removeChunks(ctx, doc.ID); err != nil {
		return 0, err
	}

	if _, err := ix.store.GetDocument(ctx, doc.ID); err == nil {
		if err := ix.store.UpdateDocument(ctx, doc); err != nil {
			return 0, fmt.Errorf("update document: %w", err)
		}
	} else {
		if err := ix.store.CreateDocument(ctx, doc); err != nil {
			return 0, fmt.Errorf("create document: %w", err)
		}
	}

	chunks := ix.chunker.Chunk(doc.ID, doc.Content)
	if len(chunks) == 0 {
		ix.logger.Debug("document has no indexable content", zap.String("document_id", doc.ID))
		return 0, nil
	}
	if err := ix.store.InsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("insert chunks: %w", err)
	}

	if err := ix.addVectors(ctx, chunks); err != nil {
		return 0, err
	}

	ix.logger.Info("document indexed",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// DeleteDocument removes a document, its chunks, and its vectors.
func (ix *Indexer) DeleteDocument(ctx context.Context, docID string) error {
	if err := ix.removeChunks(ctx, docID); err != nil {
		return err
	}
	if err := ix.store.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	ix.logger.Info("document deleted", zap.String("document_id", docID))
	return nil
}

// IndexFile reads a file and indexes it under a path-derived document ID, so
// reindexing the same path updates in place.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}
	doc := &models.Document{
		ID:       fileid.FileDocID(absPath),
		Title:    filepath.Base(absPath),
		Content:  string(content),
		Metadata: map[string]interface{}{"path": absPath},
	}
	return ix.IndexDocument(ctx, doc)
}

// DeleteFile removes the document previously indexed from path.
func (ix *Indexer) DeleteFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return ix.DeleteDocument(ctx, fileid.FileDocID(absPath))
}

// IndexDirectory indexes all files under dir with one of the given
// extensions. Per-file failures are logged and skipped; the walk continues.
// Returns the number of files indexed.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string, extensions []string, recursive bool) (int, error) {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	indexed := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			ix.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if _, err := ix.IndexFile(ctx, path); err != nil {
			ix.logger.Warn("failed to index file", zap.String("path", path), zap.Error(err))
			return nil
		}
		indexed++
		return nil
	})
	if err != nil {
		return indexed, err
	}
	return indexed, nil
}

// Rebuild re-embeds every stored chunk and re-registers it in the vector
// index. Used when the index file is corrupt or out of step with storage.
func (ix *Indexer) Rebuild(ctx context.Context) (int, error) {
	chunks, err := ix.store.AllChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := ix.addVectors(ctx, chunks); err != nil {
		return 0, err
	}
	ix.logger.Info("vector index rebuilt", zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

func (ix *Indexer) removeChunks(ctx context.Context, docID string) error {
	existing, err := ix.store.GetChunksByDocumentID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load existing chunks: %w", err)
	}
	if len(existing) > 0 {
		ids := make([]int64, len(existing))
		for i, chunk := range existing {
			ids[i] = chunk.ID
		}
		if err := ix.index.Remove(ctx, ids); err != nil {
			return fmt.Errorf("remove vectors: %w", err)
		}
		if err := ix.store.DeleteChunksByDocumentID(ctx, docID); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
	}
	return nil
}

func (ix *Indexer) addVectors(ctx context.Context, chunks []*models.Chunk) error {
	texts := make([]string, len(chunks))
	ids := make([]int64, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
		ids[i] = chunk.ID
	}
	embeddings, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if err := ix.index.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}
	return nil
}
