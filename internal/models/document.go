// Package models defines core data structures for documents, chunks, and retrieval results.
package models

import "time"

// Document represents an ingested document with metadata.
// Content is immutable after ingestion; chunks reference it by ID.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Title     string                 `json:"title" db:"title"`
	Content   string                 `json:"content" db:"content"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// Chunk is a contiguous span of a document's text, the unit of semantic indexing.
// ID is assigned by storage on insert and is unique within the index. StartOffset and
// EndOffset are rune offsets into the parent document's content; consecutive chunks
// overlap by the configured overlap window.
type Chunk struct {
	ID          int64     `json:"id" db:"id"`
	DocumentID  string    `json:"document_id" db:"document_id"`
	Text        string    `json:"text" db:"text"`
	ChunkIndex  int       `json:"chunk_index" db:"chunk_index"`
	StartOffset int       `json:"start_offset" db:"start_offset"`
	EndOffset   int       `json:"end_offset" db:"end_offset"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// DocumentInput is the input for creating or updating a document.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
