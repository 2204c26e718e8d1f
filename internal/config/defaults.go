package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8085
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/teian/data/db/documents.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/teian/data/indices/vectors.idx"
	}
	if cfg.Storage.CachePath == "" {
		cfg.Storage.CachePath = "/usr/local/var/teian/data/db/online-cache.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hash"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Vector.QdrantCollection == "" {
		cfg.Vector.QdrantCollection = "teian-chunks"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.SimilarityThreshold == 0 {
		cfg.Retrieval.SimilarityThreshold = 0.3
	}
	if cfg.Retrieval.MaxContextLength == 0 {
		cfg.Retrieval.MaxContextLength = 1500
	}
	if cfg.Retrieval.ChunkSize == 0 {
		cfg.Retrieval.ChunkSize = 512
	}
	if cfg.Retrieval.ChunkOverlap == 0 {
		cfg.Retrieval.ChunkOverlap = 50
	}
	if cfg.Suggest.DebounceMS == 0 {
		cfg.Suggest.DebounceMS = 500
	}
	if cfg.Suggest.MinTriggerChars == 0 {
		cfg.Suggest.MinTriggerChars = 3
	}
	if cfg.Suggest.ContextWindow == 0 {
		cfg.Suggest.ContextWindow = 100
	}
	if cfg.Suggest.NumSuggestions == 0 {
		cfg.Suggest.NumSuggestions = 3
	}
	if cfg.Suggest.Workers == 0 {
		cfg.Suggest.Workers = 1
	}
	if cfg.Online.MaxResults == 0 {
		cfg.Online.MaxResults = 3
	}
	if cfg.Online.TimeoutMS == 0 {
		cfg.Online.TimeoutMS = 5000
	}
	if cfg.Online.CacheTTLSeconds == 0 {
		cfg.Online.CacheTTLSeconds = 86400
	}
	if cfg.Online.CacheMaxEntries == 0 {
		cfg.Online.CacheMaxEntries = 1000
	}
	if cfg.Online.RatePerSecond == 0 {
		cfg.Online.RatePerSecond = 1.0
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "template"
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "http://localhost:11434"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "llama3.2"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 100
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.7
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
