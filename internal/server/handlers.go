package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/teian/internal/models"
	"github.com/hyperjump/teian/internal/storage"
	"github.com/hyperjump/teian/internal/suggest"
)

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query))
	response, err := s.orchestrator.Retrieve(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type suggestRequest struct {
	Text string `json:"text"`
}

// handleSuggest feeds editor text to the suggestion session and waits for
// the debounced result. A newer request supersedes any waiting one, which
// then answers 409.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ch := make(chan models.SuggestionResponse, 1)
	s.mu.Lock()
	id := s.session.Submit(req.Text)
	for oldID, oldCh := range s.waiters {
		if oldID < id {
			close(oldCh)
			delete(s.waiters, oldID)
		}
	}
	s.waiters[id] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.waiters, id)
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case resp, ok := <-ch:
			if !ok {
				s.respondError(w, http.StatusConflict, "superseded by a newer request")
				return
			}
			s.respondJSON(w, http.StatusOK, resp)
			return
		case <-r.Context().Done():
			s.session.Cancel(id)
			return
		case <-deadline:
			s.respondError(w, http.StatusGatewayTimeout, "suggestion timed out")
			return
		case <-ticker.C:
			if !s.waiting(id) {
				continue
			}
			switch s.session.State() {
			case suggest.StateIdle:
				// Fired below the trigger threshold: nothing to suggest.
				s.respondJSON(w, http.StatusOK, models.SuggestionResponse{
					RequestID:   id,
					Suggestions: []models.Suggestion{},
				})
				return
			case suggest.StateFailed:
				s.respondError(w, http.StatusBadGateway, "suggestion generation failed")
				return
			}
		}
	}
}

// waiting reports whether the request is still registered, i.e. neither
// resolved nor superseded.
func (s *Server) waiting(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.waiters[id]
	return ok
}

// onSuggestion resolves the waiter for the completed request.
func (s *Server) onSuggestion(resp models.SuggestionResponse) {
	s.mu.Lock()
	ch, ok := s.waiters[resp.RequestID]
	if ok {
		delete(s.waiters, resp.RequestID)
	}
	s.mu.Unlock()
	if ok {
		ch <- resp
	}
}

func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.ID == "" || input.Content == "" {
		s.respondError(w, http.StatusBadRequest, "id and content are required")
		return
	}
	doc := &models.Document{
		ID:       input.ID,
		Title:    input.Title,
		Content:  input.Content,
		Metadata: input.Metadata,
	}
	s.logger.Debug("index document request", zap.String("id", doc.ID), zap.String("title", doc.Title))
	chunks, err := s.indexer.IndexDocument(r.Context(), doc)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     doc.ID,
		"status": "indexed",
		"chunks": chunks,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.indexer.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"documents":         docCount,
		"chunks":            chunkCount,
		"vector_index_size": s.index.Size(),
		"config": map[string]interface{}{
			"vector_index_type":    s.index.Type(),
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"similarity_threshold": s.config.Retrieval.SimilarityThreshold,
			"top_k":                s.config.Retrieval.TopK,
			"online_enabled":       s.config.Online.Enabled,
		},
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.VectorIndexPath,
		s.config.Storage.CachePath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
