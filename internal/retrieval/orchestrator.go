// Package retrieval coordinates local vector search with cached online fallback.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/teian/internal/cache"
	"github.com/hyperjump/teian/internal/embedding"
	"github.com/hyperjump/teian/internal/models"
	"github.com/hyperjump/teian/internal/online"
	"github.com/hyperjump/teian/internal/storage"
	"github.com/hyperjump/teian/internal/vector"
)

// Options tune retrieval behavior.
type Options struct {
	TopK                int
	SimilarityThreshold float64
	OnlineMaxResults    int
}

// Orchestrator serves retrieval requests local-first: the vector index is
// consulted before any network call, and online fallback fires only when no
// local result clears the similarity threshold.
type Orchestrator struct {
	embedder embedding.Embedder
	index    vector.Index
	store    storage.Storage
	results  *cache.ResultCache
	gateway  online.Gateway // nil disables online fallback
	opts     Options
	logger   *zap.Logger
}

// NewOrchestrator creates an Orchestrator. gateway may be nil, in which case
// queries that miss locally return empty results with FallbackTriggered set.
func NewOrchestrator(
	embedder embedding.Embedder,
	index vector.Index,
	store storage.Storage,
	results *cache.ResultCache,
	gateway online.Gateway,
	opts Options,
	logger *zap.Logger,
) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = 0.3
	}
	if opts.OnlineMaxResults <= 0 {
		opts.OnlineMaxResults = 3
	}
	return &Orchestrator{
		embedder: embedder,
		index:    index,
		store:    store,
		results:  results,
		gateway:  gateway,
		opts:     opts,
		logger:   logger,
	}
}

// Retrieve runs a query through the local index and, if nothing clears the
// threshold, the online fallback. Online failures are soft: the response
// still reports FallbackTriggered with whatever local context exists.
func (o *Orchestrator) Retrieve(ctx context.Context, query string) (*models.RetrievalResponse, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return &models.RetrievalResponse{Query: query, Results: []models.SearchResult{}}, nil
	}

	emb, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := o.index.Search(ctx, emb, o.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	local := o.hydrate(ctx, matches)
	if len(local) > 0 {
		o.logger.Debug("local retrieval satisfied query",
			zap.String("query", query),
			zap.Int("results", len(local)),
			zap.Float64("top_score", local[0].Score))
		return &models.RetrievalResponse{
			Query:     query,
			Results:   local,
			QueryTime: time.Since(start).Milliseconds(),
		}, nil
	}

	onlineResults := o.fallback(ctx, query)
	o.logger.Debug("online fallback triggered",
		zap.String("query", query),
		zap.Int("results", len(onlineResults)))
	return &models.RetrievalResponse{
		Query:             query,
		Results:           onlineResults,
		FallbackTriggered: true,
		QueryTime:         time.Since(start).Milliseconds(),
	}, nil
}

// hydrate resolves index matches to full results, keeping only those at or
// above the similarity threshold. Matches whose chunk row has vanished are
// skipped; the index catches up on the next rebuild.
func (o *Orchestrator) hydrate(ctx context.Context, matches []*vector.Result) []models.SearchResult {
	titles := make(map[string]string)
	results := make([]models.SearchResult, 0, len(matches))
	for _, m := range matches {
		if m.Score < o.opts.SimilarityThreshold {
			continue
		}
		chunk, err := o.store.GetChunk(ctx, m.ChunkID)
		if err != nil {
			o.logger.Warn("index references missing chunk",
				zap.Int64("chunk_id", m.ChunkID), zap.Error(err))
			continue
		}
		title, ok := titles[chunk.DocumentID]
		if !ok {
			title = chunk.DocumentID
			if doc, err := o.store.GetDocument(ctx, chunk.DocumentID); err == nil && doc.Title != "" {
				title = doc.Title
			}
			titles[chunk.DocumentID] = title
		}
		results = append(results, models.SearchResult{
			ChunkID:     m.ChunkID,
			Score:       m.Score,
			Source:      models.SourceLocal,
			Text:        chunk.Text,
			Attribution: title,
		})
	}
	return results
}

// fallback serves online results from the cache when possible, hitting the
// gateway at most once per distinct query until the cache entry expires.
func (o *Orchestrator) fallback(ctx context.Context, query string) []models.SearchResult {
	if cached, ok := o.results.Get(query); ok {
		o.logger.Debug("online cache hit", zap.String("query", query))
		return cached
	}
	if o.gateway == nil {
		return []models.SearchResult{}
	}
	results, err := o.gateway.Search(ctx, query, o.opts.OnlineMaxResults)
	if err != nil {
		o.logger.Warn("online search failed", zap.String("query", query), zap.Error(err))
		return []models.SearchResult{}
	}
	// Empty result sets are cached too, so repeated misses stay off the network.
	o.results.Put(query, results)
	return results
}
