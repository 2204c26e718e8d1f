// Package indexer splits documents into chunks and keeps storage and the
// vector index in step.
package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/teian/internal/models"
)

// Chunker splits text into overlapping chunks, preferring to cut at sentence
// boundaries. Offsets are rune positions into the original text, so a chunk
// can always be located in its document.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a Chunker. chunkSize must be positive and overlap must
// be smaller than chunkSize or the window cannot advance.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits text into chunks for docID. Whitespace-only text yields no
// chunks. Chunking is deterministic: the same text always produces the same
// chunks.
func (c *Chunker) Chunk(docID, text string) []*models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []*models.Chunk
	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else if cut := c.sentenceCut(runes, start, end); cut > start {
			end = cut
		} else if startsSentence(runes, start) {
			// The window ends inside one long sentence. Emit it whole as an
			// oversized chunk, unless it runs more than half a window past
			// the edge; those are force split at the window.
			if se := sentenceEnd(runes, end); se-start <= c.chunkSize*3/2 {
				end = se
			}
		}

		chunks = append(chunks, &models.Chunk{
			DocumentID:  docID,
			Text:        string(runes[start:end]),
			ChunkIndex:  len(chunks),
			StartOffset: start,
			EndOffset:   end,
		})

		if end == len(runes) {
			break
		}
		start = end - c.overlap
	}
	return chunks
}

// sentenceCut searches backwards from end for a sentence boundary, but not
// past the window midpoint so chunks stay reasonably sized.
func (c *Chunker) sentenceCut(runes []rune, start, end int) int {
	limit := start + c.chunkSize/2
	for i := end - 1; i > limit; i-- {
		switch runes[i-1] {
		case '.', '!', '?', '\n':
			if i == len(runes) || runes[i] == ' ' || runes[i] == '\n' {
				return i
			}
		}
	}
	return 0
}

// startsSentence reports whether pos begins a sentence: the start of the
// text, or preceded by a sentence boundary with only spaces in between.
func startsSentence(runes []rune, pos int) bool {
	for i := pos - 1; i >= 0; i-- {
		switch runes[i] {
		case ' ', '\t':
			continue
		case '.', '!', '?', '\n':
			return true
		default:
			return false
		}
	}
	return true
}

// sentenceEnd scans forward from pos for the end of the current sentence,
// returning len(runes) when the text ends first.
func sentenceEnd(runes []rune, pos int) int {
	for i := pos; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?', '\n':
			if i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				return i + 1
			}
		}
	}
	return len(runes)
}
