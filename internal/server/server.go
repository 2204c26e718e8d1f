// Package server provides the HTTP API for Teian.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/teian/internal/config"
	"github.com/hyperjump/teian/internal/indexer"
	"github.com/hyperjump/teian/internal/models"
	"github.com/hyperjump/teian/internal/retrieval"
	"github.com/hyperjump/teian/internal/storage"
	"github.com/hyperjump/teian/internal/suggest"
	"github.com/hyperjump/teian/internal/vector"
)

// Server is the HTTP server for the Teian API.
type Server struct {
	orchestrator *retrieval.Orchestrator
	indexer      *indexer.Indexer
	storage      storage.Storage
	index        vector.Index
	config       *config.Config
	logger       *zap.Logger
	server       *http.Server

	// One suggestion session serves the API: each POST /suggest supersedes
	// the previous one, matching editor semantics where only the latest
	// keystroke matters.
	session *suggest.Session
	mu      sync.Mutex
	waiters map[uint64]chan models.SuggestionResponse
}

// NewServer creates a server with the given dependencies.
func NewServer(
	orchestrator *retrieval.Orchestrator,
	pipeline *suggest.Pipeline,
	idx *indexer.Indexer,
	store storage.Storage,
	vindex vector.Index,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		orchestrator: orchestrator,
		indexer:      idx,
		storage:      store,
		index:        vindex,
		config:       cfg,
		logger:       logger,
		waiters:      make(map[uint64]chan models.SuggestionResponse),
	}
	s.session = pipeline.NewSession(s.onSuggestion)
	return s
}

// Handler builds the chi router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/suggest", s.handleSuggest)
	r.Post("/api/v1/documents", s.handleIndexDocument)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.session.Close()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
