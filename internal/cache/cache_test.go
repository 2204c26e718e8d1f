package cache

import (
	"testing"
	"time"

	"github.com/hyperjump/teian/internal/models"
)

func results(texts ...string) []models.SearchResult {
	out := make([]models.SearchResult, len(texts))
	for i, text := range texts {
		out[i] = models.SearchResult{Text: text, Source: models.SourceOnline, Score: 0.5}
	}
	return out
}

func TestResultCache_GetPut(t *testing.T) {
	c, err := New(10, time.Hour, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent query")
	}

	c.Put("go generics", results("a", "b"))
	got, ok := c.Get("go generics")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 2 || got[0].Text != "a" {
		t.Errorf("unexpected results: %+v", got)
	}
}

func TestResultCache_KeyNormalization(t *testing.T) {
	c, _ := New(10, time.Hour, nil)
	c.Put("  Go   Generics ", results("a"))
	if _, ok := c.Get("go generics"); !ok {
		t.Error("expected hit for normalized equivalent query")
	}
	if c.Len() != 1 {
		t.Errorf("expected single entry, got %d", c.Len())
	}
}

func TestResultCache_TTLExpiry(t *testing.T) {
	c, _ := New(10, time.Minute, nil)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("query", results("a"))
	if _, ok := c.Get("query"); !ok {
		t.Fatal("expected hit before expiry")
	}

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, ok := c.Get("query"); ok {
		t.Error("expected miss after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed, len=%d", c.Len())
	}
}

func TestResultCache_LRUEviction(t *testing.T) {
	c, _ := New(2, time.Hour, nil)
	c.Put("a", results("a"))
	c.Put("b", results("b"))
	c.Get("a")
	c.Put("c", results("c"))

	if _, ok := c.Get("a"); !ok {
		t.Error("recently used a should survive")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used b should be evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest c should be present")
	}
}

func TestResultCache_EmptyResultsAreCacheable(t *testing.T) {
	c, _ := New(10, time.Hour, nil)
	c.Put("nothing found", nil)
	got, ok := c.Get("nothing found")
	if !ok {
		t.Fatal("empty result sets should be cached to avoid repeated lookups")
	}
	if len(got) != 0 {
		t.Errorf("expected empty results, got %+v", got)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello world"},
		{"  spaced   out  ", "spaced out"},
		{"already normal", "already normal"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
