package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperjump/teian/internal/models"
)

func TestTemplateGenerator_AttributedExcerpts(t *testing.T) {
	g := NewTemplateGenerator()
	got, err := g.Generate(context.Background(), Request{
		Query: "goroutines",
		Context: []models.SearchResult{
			{Text: "Goroutines are lightweight threads.", Source: models.SourceLocal, Attribution: "Go Notes"},
		},
		MaxSuggestions: 3,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	if !strings.Contains(got[0].Text, "[From: Go Notes]") {
		t.Errorf("expected attribution marker, got %q", got[0].Text)
	}
	if got[0].Source != models.SourceLocal {
		t.Errorf("source not carried through: %s", got[0].Source)
	}
}

func TestTemplateGenerator_RespectsMaxSuggestions(t *testing.T) {
	g := NewTemplateGenerator()
	ctx := []models.SearchResult{
		{Text: "one", Source: models.SourceLocal},
		{Text: "two", Source: models.SourceLocal},
		{Text: "three", Source: models.SourceLocal},
	}
	got, err := g.Generate(context.Background(), Request{Context: ctx, MaxSuggestions: 2})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 suggestions, got %d", len(got))
	}
}

func TestTemplateGenerator_SkipsEmptyPassages(t *testing.T) {
	g := NewTemplateGenerator()
	got, err := g.Generate(context.Background(), Request{
		Context:        []models.SearchResult{{Text: "   "}, {Text: "real content", Source: models.SourceOnline, Attribution: "Wikipedia: X"}},
		MaxSuggestions: 3,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	if got[0].Source != models.SourceOnline {
		t.Errorf("expected online source, got %s", got[0].Source)
	}
}

func TestTemplateGenerator_EmptyContext(t *testing.T) {
	g := NewTemplateGenerator()
	got, err := g.Generate(context.Background(), Request{Query: "q", MaxSuggestions: 3})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no suggestions for empty context, got %d", len(got))
	}
}
