// Package generate turns retrieval context into writing suggestions.
package generate

import (
	"context"
	"errors"

	"github.com/hyperjump/teian/internal/models"
)

// ErrUnavailable indicates the generation backend could not serve the
// request. Callers fall back to template suggestions.
var ErrUnavailable = errors.New("generation backend unavailable")

// Request carries a query and its retrieval context to a generator.
type Request struct {
	Query          string
	Context        []models.SearchResult
	MaxSuggestions int
}

// Generator produces suggestions grounded in retrieval context.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]models.Suggestion, error)
}
