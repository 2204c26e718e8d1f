// Package cli provides output formatting for the teian command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/hyperjump/teian/internal/models"
	"github.com/hyperjump/teian/pkg/utils"
)

// OutputFormat selects how results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	localColor  = color.New(color.FgGreen).SprintFunc()
	onlineColor = color.New(color.FgYellow).SprintFunc()
	dimColor    = color.New(color.Faint).SprintFunc()
)

func sourceLabel(source models.Source) string {
	if source == models.SourceOnline {
		return onlineColor("online")
	}
	return localColor("local")
}

// WriteSearchResults writes a retrieval response to w in the given format.
func WriteSearchResults(w io.Writer, response *models.RetrievalResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}

	fmt.Fprintf(w, "\n%s %d results in %dms", headerColor("Found"), len(response.Results), response.QueryTime)
	if response.FallbackTriggered {
		fmt.Fprintf(w, " %s", dimColor("(online fallback)"))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
	for i, result := range response.Results {
		fmt.Fprintf(w, "%d. [%s] score %.4f", i+1, sourceLabel(result.Source), result.Score)
		if result.Attribution != "" {
			fmt.Fprintf(w, " %s", dimColor(result.Attribution))
		}
		fmt.Fprintf(w, "\n   %s\n\n", utils.Truncate(result.Text, 200))
	}
	return nil
}

// WriteSuggestions writes a suggestion response to w in the given format.
func WriteSuggestions(w io.Writer, response *models.SuggestionResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}

	if len(response.Suggestions) == 0 {
		fmt.Fprintln(w, dimColor("No suggestions."))
		return nil
	}
	fmt.Fprintf(w, "\n%s (%dms)\n\n", headerColor("Suggestions"), response.QueryTime)
	for i, s := range response.Suggestions {
		fmt.Fprintf(w, "%d. [%s] %s\n", i+1, sourceLabel(s.Source), s.Text)
	}
	fmt.Fprintln(w)
	return nil
}
