// Command teian runs the Teian suggestion engine: a local-first retrieval
// server with an HTTP API, plus subcommands for searching, suggesting, and
// maintaining the document index from the terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/teian/internal/cache"
	"github.com/hyperjump/teian/internal/cli"
	"github.com/hyperjump/teian/internal/config"
	"github.com/hyperjump/teian/internal/embedding"
	"github.com/hyperjump/teian/internal/generate"
	"github.com/hyperjump/teian/internal/indexer"
	"github.com/hyperjump/teian/internal/models"
	"github.com/hyperjump/teian/internal/online"
	"github.com/hyperjump/teian/internal/retrieval"
	"github.com/hyperjump/teian/internal/server"
	"github.com/hyperjump/teian/internal/storage"
	"github.com/hyperjump/teian/internal/suggest"
	"github.com/hyperjump/teian/internal/vector"
	"github.com/hyperjump/teian/internal/watcher"
	"github.com/hyperjump/teian/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/teian/config.yaml"

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config file")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd, cmdArgs := args[0], args[1:]
	if cmd == "version" {
		fmt.Printf("teian %s\n", version)
		return
	}
	if cmd == "help" {
		printUsage()
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch cmd {
	case "server":
		err = runServer(cfg, logger)
	case "search":
		err = runSearch(cfg, logger, cmdArgs)
	case "suggest":
		err = runSuggest(cfg, logger, cmdArgs)
	case "index":
		err = runIndex(cfg, logger, cmdArgs)
	case "add":
		err = runAdd(cfg, logger, cmdArgs)
	case "delete":
		err = runDelete(cfg, logger, cmdArgs)
	case "status":
		err = runStatus(cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from path, or falls back to ./config.yaml,
// then the system default path, then built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	for _, candidate := range []string{"config.yaml", defaultConfigPath} {
		if _, err := os.Stat(candidate); err == nil {
			return config.Load(candidate)
		}
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg, nil
}

// Components holds the wired application dependencies.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  vector.Index
	ResultCache  *cache.ResultCache
	Orchestrator *retrieval.Orchestrator
	Pipeline     *suggest.Pipeline
	Indexer      *indexer.Indexer

	logger *zap.Logger
}

// Close releases all component resources.
func (c *Components) Close() {
	if c.ResultCache != nil {
		c.ResultCache.Close()
	}
	if c.VectorIndex != nil {
		c.VectorIndex.Close()
	}
	if c.Embedder != nil {
		c.Embedder.Close()
	}
	if c.Storage != nil {
		c.Storage.Close()
	}
}

// Save persists the vector index to its configured path.
func (c *Components) Save(cfg *config.Config) {
	if err := c.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
		c.logger.Warn("failed to save vector index", zap.Error(err))
	}
}

func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	switch cfg.Embedding.Provider {
	case "onnx":
		e, err := embedding.NewONNXEmbedder(cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens, cfg.Embedding.CacheSize)
		if err != nil {
			logger.Warn("onnx embedder unavailable, falling back to hash embedder", zap.Error(err))
			return embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
		}
		return e
	case "http":
		e, err := embedding.NewRemoteEmbedder(embedding.RemoteConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			APIKeyEnv:  cfg.Embedding.APIKeyEnv,
			Dimensions: cfg.Embedding.Dimensions,
			CacheSize:  cfg.Embedding.CacheSize,
			Timeout:    30 * time.Second,
		})
		if err != nil {
			logger.Warn("remote embedder unavailable, falling back to hash embedder", zap.Error(err))
			return embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
		}
		return e
	default:
		return embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
	}
}

func newGenerator(cfg *config.Config) generate.Generator {
	if cfg.Generation.Provider == "ollama" {
		return generate.NewOllamaGenerator(generate.OllamaConfig{
			BaseURL:         cfg.Generation.BaseURL,
			Model:           cfg.Generation.Model,
			MaxTokens:       cfg.Generation.MaxTokens,
			Temperature:     cfg.Generation.Temperature,
			MaxContextChars: cfg.Retrieval.MaxContextLength,
		})
	}
	return nil
}

// initializeComponents wires storage, embedding, the vector index, caching,
// retrieval, and the suggestion pipeline from config. Provider failures
// degrade to local fallbacks rather than aborting startup.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	embedder := newEmbedder(cfg, logger)

	idx, err := vector.NewIndex(cfg.Vector.IndexType, embedder.Dimensions(), vector.Options{
		QdrantURL:        cfg.Vector.QdrantURL,
		QdrantCollection: cfg.Vector.QdrantCollection,
	})
	if err != nil {
		logger.Warn("vector index unavailable, falling back to memory index", zap.Error(err))
		idx, err = vector.NewMemoryIndex(embedder.Dimensions())
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	needRebuild := false
	if _, statErr := os.Stat(cfg.Storage.VectorIndexPath); statErr == nil {
		if loadErr := idx.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			if errors.Is(loadErr, vector.ErrCorruptIndex) {
				logger.Warn("vector index corrupt, rebuilding from storage", zap.Error(loadErr))
				needRebuild = true
			} else {
				logger.Warn("failed to load vector index", zap.Error(loadErr))
			}
		}
	}

	var cacheStore cache.Store
	if cfg.Storage.CachePath != "" {
		bolt, boltErr := cache.NewBoltStore(cfg.Storage.CachePath)
		if boltErr != nil {
			logger.Warn("cache persistence unavailable", zap.Error(boltErr))
		} else {
			cacheStore = bolt
		}
	}
	results, err := cache.New(cfg.Online.CacheMaxEntries,
		time.Duration(cfg.Online.CacheTTLSeconds)*time.Second, cacheStore)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	var gateway online.Gateway
	if cfg.Online.Enabled {
		gateway = online.NewWikipediaGateway(online.WikipediaConfig{
			BaseURL:       cfg.Online.BaseURL,
			Timeout:       time.Duration(cfg.Online.TimeoutMS) * time.Millisecond,
			RatePerSecond: cfg.Online.RatePerSecond,
		})
	}

	orch := retrieval.NewOrchestrator(embedder, idx, store, results, gateway, retrieval.Options{
		TopK:                cfg.Retrieval.TopK,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		OnlineMaxResults:    cfg.Online.MaxResults,
	}, logger)

	pipeline := suggest.NewPipeline(orch, newGenerator(cfg), generate.NewTemplateGenerator(), suggest.Options{
		Debounce:        time.Duration(cfg.Suggest.DebounceMS) * time.Millisecond,
		MinTriggerChars: cfg.Suggest.MinTriggerChars,
		ContextWindow:   cfg.Suggest.ContextWindow,
		NumSuggestions:  cfg.Suggest.NumSuggestions,
		Workers:         cfg.Suggest.Workers,
	}, logger)

	chunker, err := indexer.NewChunker(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	if err != nil {
		store.Close()
		return nil, err
	}
	ix := indexer.New(store, embedder, idx, chunker, logger)

	comps := &Components{
		Storage:      store,
		Embedder:     embedder,
		VectorIndex:  idx,
		ResultCache:  results,
		Orchestrator: orch,
		Pipeline:     pipeline,
		Indexer:      ix,
		logger:       logger,
	}

	// The persisted index can drift from storage if the process died between
	// an insert and a save. Rebuild when they disagree.
	chunkCount, countErr := store.CountChunks(ctx)
	if !needRebuild && countErr == nil && int64(idx.Size()) != chunkCount {
		logger.Warn("vector index out of sync with storage, rebuilding",
			zap.Int("index_size", idx.Size()), zap.Int64("chunks", chunkCount))
		needRebuild = true
	}
	if needRebuild {
		if n, rebuildErr := ix.Rebuild(ctx); rebuildErr != nil {
			logger.Error("index rebuild failed", zap.Error(rebuildErr))
		} else {
			logger.Info("vector index rebuilt", zap.Int("vectors", n))
		}
	}

	return comps, nil
}

func runServer(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	var w *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		w = watcher.New(watcher.Config{
			Roots:      cfg.Watch.Directories,
			Extensions: cfg.Watch.Extensions,
			Recursive:  cfg.Watch.RecursiveOrDefault(),
		}, func(path string) {
			if _, err := comps.Indexer.IndexFile(ctx, path); err != nil {
				logger.Warn("failed to index file", zap.String("path", path), zap.Error(err))
			}
		}, func(path string) {
			if err := comps.Indexer.DeleteFile(ctx, path); err != nil {
				logger.Warn("failed to remove file", zap.String("path", path), zap.Error(err))
			}
		}, logger)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		w.SyncExistingFiles()
	}

	srv := server.NewServer(comps.Orchestrator, comps.Pipeline, comps.Indexer,
		comps.Storage, comps.VectorIndex, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	if w != nil {
		w.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	comps.Save(cfg)
	return nil
}

// tryServer posts payload to a running server. Returns false when no server
// is reachable, in which case the caller falls back to direct mode.
func tryServer(cfg *config.Config, path string, payload, out interface{}) (bool, error) {
	url := fmt.Sprintf("http://%s:%d%s", cfg.Server.Host, cfg.Server.Port, path)
	data, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Post(url, "application/json", strings.NewReader(string(data)))
	if err != nil {
		return false, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return true, fmt.Errorf("server returned %s", resp.Status)
	}
	return true, json.NewDecoder(resp.Body).Decode(out)
}

func outputFormat(jsonFlag bool) cli.OutputFormat {
	if jsonFlag {
		return cli.OutputJSON
	}
	return cli.OutputText
}

func runSearch(cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "output JSON")
	fs.Parse(args)
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return fmt.Errorf("usage: teian search <query>")
	}

	var resp models.RetrievalResponse
	ok, err := tryServer(cfg, "/api/v1/search", map[string]string{"query": query}, &resp)
	if err != nil {
		return err
	}
	if ok {
		return cli.WriteSearchResults(os.Stdout, &resp, outputFormat(*asJSON))
	}

	ctx := context.Background()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	direct, err := comps.Orchestrator.Retrieve(ctx, query)
	if err != nil {
		return err
	}
	return cli.WriteSearchResults(os.Stdout, direct, outputFormat(*asJSON))
}

func runSuggest(cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "output JSON")
	fs.Parse(args)
	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("usage: teian suggest <text>")
	}

	var resp models.SuggestionResponse
	ok, err := tryServer(cfg, "/api/v1/suggest", map[string]string{"text": text}, &resp)
	if err != nil {
		return err
	}
	if ok {
		return cli.WriteSuggestions(os.Stdout, &resp, outputFormat(*asJSON))
	}

	ctx := context.Background()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	ch := make(chan models.SuggestionResponse, 1)
	session := comps.Pipeline.NewSession(func(r models.SuggestionResponse) { ch <- r })
	defer session.Close()
	session.Submit(text)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(60 * time.Second)
	for {
		select {
		case r := <-ch:
			return cli.WriteSuggestions(os.Stdout, &r, outputFormat(*asJSON))
		case <-ticker.C:
			// Below the trigger length the pipeline goes idle without a callback.
			if session.State() == suggest.StateIdle {
				return cli.WriteSuggestions(os.Stdout, &models.SuggestionResponse{}, outputFormat(*asJSON))
			}
		case <-deadline:
			return fmt.Errorf("timed out waiting for suggestions")
		}
	}
}

func runIndex(cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	recursive := fs.Bool("recursive", true, "recurse into subdirectories")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: teian index [-recursive] <path>")
	}

	ctx := context.Background()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	for _, path := range fs.Args() {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			n, err := comps.Indexer.IndexDirectory(ctx, path, cfg.Watch.Extensions, *recursive)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d files from %s\n", n, path)
		} else {
			n, err := comps.Indexer.IndexFile(ctx, path)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %s (%d chunks)\n", path, n)
		}
	}
	comps.Save(cfg)
	return nil
}

func runAdd(cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	id := fs.String("id", "", "document ID (generated when empty)")
	title := fs.String("title", "", "document title")
	fs.Parse(args)
	content := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if content == "" {
		return fmt.Errorf("usage: teian add [-id ID] [-title TITLE] <text>")
	}

	ctx := context.Background()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	docID := *id
	if docID == "" {
		docID = uuid.NewString()
	}
	n, err := comps.Indexer.IndexDocument(ctx, &models.Document{
		ID:      docID,
		Title:   *title,
		Content: content,
	})
	if err != nil {
		return err
	}
	comps.Save(cfg)
	fmt.Printf("added document %s (%d chunks)\n", docID, n)
	return nil
}

func runDelete(cfg *config.Config, logger *zap.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: teian delete <doc-id-or-path>")
	}

	ctx := context.Background()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	for _, target := range args {
		if _, statErr := os.Stat(target); statErr == nil || filepath.IsAbs(target) {
			err = comps.Indexer.DeleteFile(ctx, target)
		} else {
			err = comps.Indexer.DeleteDocument(ctx, target)
		}
		if err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", target)
	}
	comps.Save(cfg)
	return nil
}

func runStatus(cfg *config.Config, logger *zap.Logger) error {
	url := fmt.Sprintf("http://%s:%d/api/v1/status", cfg.Server.Host, cfg.Server.Port)
	client := &http.Client{Timeout: 10 * time.Second}
	if resp, err := client.Get(url); err == nil {
		defer resp.Body.Close()
		var out map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	ctx := context.Background()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	docs, _ := comps.Storage.CountDocuments(ctx)
	chunks, _ := comps.Storage.CountChunks(ctx)
	fmt.Printf("documents:         %d\n", docs)
	fmt.Printf("chunks:            %d\n", chunks)
	fmt.Printf("vector index:      %s (%d vectors)\n", comps.VectorIndex.Type(), comps.VectorIndex.Size())
	fmt.Printf("embedding:         %s (%d dims)\n", cfg.Embedding.Provider, comps.Embedder.Dimensions())
	fmt.Printf("online fallback:   %t\n", cfg.Online.Enabled)
	return nil
}

func printUsage() {
	fmt.Print(`teian - local-first retrieval and suggestion engine

Usage:
  teian [-config path] <command> [arguments]

Commands:
  server                       start the HTTP API server
  search [-json] <query>       search indexed documents (online fallback on miss)
  suggest [-json] <text>       produce suggestions for the given editing context
  index [-recursive] <path>    index a file or directory
  add [-id ID] [-title T] <text>
                               add a document from literal text
  delete <doc-id-or-path>      remove a document and its vectors
  status                       show index statistics
  version                      print version
  help                         show this help

Config is read from -config, ./config.yaml, or ` + defaultConfigPath + `.
`)
}
