package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/teian/internal/models"
)

func sampleRetrieval() *models.RetrievalResponse {
	return &models.RetrievalResponse{
		Query:     "goroutines",
		QueryTime: 12,
		Results: []models.SearchResult{
			{ChunkID: 7, Score: 0.91, Source: models.SourceLocal, Text: "goroutines are cheap", Attribution: "Go Notes"},
			{Score: 0.4, Source: models.SourceOnline, Text: "a goroutine is a lightweight thread", Attribution: "Wikipedia: Goroutine"},
		},
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleRetrieval(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"2 results", "12ms", "goroutines are cheap", "Go Notes", "Wikipedia: Goroutine"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleRetrieval(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults failed: %v", err)
	}
	var parsed models.RetrievalResponse
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(parsed.Results) != 2 || parsed.Query != "goroutines" {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}

func TestWriteSuggestions_Text(t *testing.T) {
	resp := &models.SuggestionResponse{
		RequestID: 3,
		QueryTime: 40,
		Suggestions: []models.Suggestion{
			{Text: "continue with channels [From: Go Notes]", Source: models.SourceLocal, Attribution: "Go Notes"},
		},
	}
	var buf bytes.Buffer
	if err := WriteSuggestions(&buf, resp, OutputText); err != nil {
		t.Fatalf("WriteSuggestions failed: %v", err)
	}
	if !strings.Contains(buf.String(), "continue with channels") {
		t.Errorf("output missing suggestion text:\n%s", buf.String())
	}
}

func TestWriteSuggestions_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSuggestions(&buf, &models.SuggestionResponse{}, OutputText); err != nil {
		t.Fatalf("WriteSuggestions failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No suggestions") {
		t.Errorf("expected empty notice, got:\n%s", buf.String())
	}
}

func TestWriteSuggestions_JSON(t *testing.T) {
	resp := &models.SuggestionResponse{
		RequestID:   1,
		Suggestions: []models.Suggestion{{Text: "x", Source: models.SourceLocal}},
	}
	var buf bytes.Buffer
	if err := WriteSuggestions(&buf, resp, OutputJSON); err != nil {
		t.Fatalf("WriteSuggestions failed: %v", err)
	}
	var parsed models.SuggestionResponse
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed.RequestID != 1 {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}
