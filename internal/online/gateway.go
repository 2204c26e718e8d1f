// Package online provides fallback search against external knowledge sources.
package online

import (
	"context"
	"errors"

	"github.com/hyperjump/teian/internal/models"
)

// ErrUnavailable indicates the online source could not be reached or answered
// with an error. Callers treat it as a soft failure: local results still serve.
var ErrUnavailable = errors.New("online source unavailable")

// Gateway searches an external source for supplementary results.
type Gateway interface {
	// Search returns up to maxResults results for query. Results carry
	// Source set to models.SourceOnline and a human-readable Attribution.
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
}
