package models

// Source identifies where a search result came from.
type Source string

const (
	// SourceLocal marks results retrieved from the indexed document corpus.
	SourceLocal Source = "local"
	// SourceOnline marks results retrieved from the online fallback gateway.
	SourceOnline Source = "online"
)

// SearchResult is a single retrieval hit. ChunkID is zero for online results.
// Attribution names the origin: document title for local hits, article title and
// URL for online hits.
type SearchResult struct {
	ChunkID     int64   `json:"chunk_id,omitempty"`
	Score       float64 `json:"score"`
	Source      Source  `json:"source"`
	Text        string  `json:"text"`
	Attribution string  `json:"attribution,omitempty"`
}

// RetrievalResponse is the outcome of one retrieval run.
// Results are ordered local-first: every local result precedes every online result.
type RetrievalResponse struct {
	Results           []SearchResult `json:"results"`
	FallbackTriggered bool           `json:"fallback_triggered"`
	QueryTime         int64          `json:"query_time_ms"`
	Query             string         `json:"query"`
}
