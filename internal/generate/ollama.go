package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/teian/internal/models"
)

// OllamaGenerator produces suggestions through a local Ollama server.
type OllamaGenerator struct {
	baseURL         string
	model           string
	maxTokens       int
	temperature     float64
	maxContextChars int
	client          *http.Client
}

// OllamaConfig configures an OllamaGenerator.
type OllamaConfig struct {
	BaseURL         string
	Model           string
	MaxTokens       int
	Temperature     float64
	MaxContextChars int
	Timeout         time.Duration
}

// NewOllamaGenerator creates a generator against an Ollama /api/generate endpoint.
func NewOllamaGenerator(cfg OllamaConfig) *OllamaGenerator {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OllamaGenerator{
		baseURL:         baseURL,
		model:           cfg.Model,
		maxTokens:       cfg.MaxTokens,
		temperature:     cfg.Temperature,
		maxContextChars: cfg.MaxContextChars,
		client:          &http.Client{Timeout: timeout},
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Generate builds a grounded prompt and asks the model for completions, one
// suggestion per response line. Backend failures surface as ErrUnavailable.
func (g *OllamaGenerator) Generate(ctx context.Context, req Request) ([]models.Suggestion, error) {
	prompt := BuildPrompt(req, g.maxContextChars)

	body, err := json.Marshal(ollamaRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			NumPredict:  g.maxTokens,
			Temperature: g.temperature,
		},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	suggestions := parseSuggestions(parsed.Response, req)
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return suggestions, nil
}

// parseSuggestions splits model output into one suggestion per non-empty
// line, stripping list markers the model tends to emit.
func parseSuggestions(output string, req Request) []models.Suggestion {
	source := models.SourceLocal
	attribution := ""
	for _, r := range req.Context {
		if r.Source == models.SourceOnline {
			source = models.SourceOnline
		}
		if attribution == "" {
			attribution = r.Attribution
		}
	}

	var suggestions []models.Suggestion
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		if line == "" {
			continue
		}
		suggestions = append(suggestions, models.Suggestion{
			Text:        line,
			Source:      source,
			Attribution: attribution,
		})
		if req.MaxSuggestions > 0 && len(suggestions) >= req.MaxSuggestions {
			break
		}
	}
	return suggestions
}
