package generate

import (
	"context"
	"strings"

	"github.com/hyperjump/teian/internal/models"
	"github.com/hyperjump/teian/pkg/utils"
)

// excerptChars bounds the passage text carried into a template suggestion.
const excerptChars = 200

// TemplateGenerator builds suggestions directly from retrieval context
// without a language model. It always succeeds, which makes it the fallback
// when no generation backend is reachable.
type TemplateGenerator struct{}

// NewTemplateGenerator creates a template-based generator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate turns each context passage into an attributed excerpt suggestion.
func (g *TemplateGenerator) Generate(_ context.Context, req Request) ([]models.Suggestion, error) {
	max := req.MaxSuggestions
	if max <= 0 {
		max = 3
	}

	suggestions := make([]models.Suggestion, 0, max)
	for _, r := range req.Context {
		if len(suggestions) >= max {
			break
		}
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		excerpt := utils.Truncate(text, excerptChars)
		if r.Attribution != "" {
			excerpt += " [From: " + r.Attribution + "]"
		}
		suggestions = append(suggestions, models.Suggestion{
			Text:        excerpt,
			Source:      r.Source,
			Attribution: r.Attribution,
		})
	}
	return suggestions, nil
}
