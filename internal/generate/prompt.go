package generate

import (
	"fmt"
	"strings"
)

// BuildPrompt assembles a grounded prompt from the query and its context.
// Context passages are numbered with their attribution and truncated so the
// total context stays under maxContextChars.
func BuildPrompt(req Request, maxContextChars int) string {
	if maxContextChars <= 0 {
		maxContextChars = 1500
	}

	var b strings.Builder
	b.WriteString("You are a writing assistant. Using only the reference passages below, ")
	b.WriteString("suggest short continuations or completions for the user's text. ")
	fmt.Fprintf(&b, "Provide up to %d suggestions, one per line.\n\n", req.MaxSuggestions)

	budget := maxContextChars
	for i, r := range req.Context {
		if budget <= 0 {
			break
		}
		runes := []rune(r.Text)
		if len(runes) > budget {
			runes = runes[:budget]
		}
		budget -= len(runes)
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, r.Attribution, string(runes))
	}

	b.WriteString("\nUser text:\n")
	b.WriteString(req.Query)
	b.WriteString("\n\nSuggestions:\n")
	return b.String()
}
