// Package suggest drives debounced, cancellable suggestion generation on top
// of retrieval.
package suggest

import "strings"

// ExtractQuery derives the retrieval query from editor text: the last window
// runes before the cursor, trimmed. A leading partial word is dropped when
// the window cuts into one, so the query starts at a word boundary.
func ExtractQuery(text string, window int) string {
	if window <= 0 {
		window = 100
	}
	runes := []rune(text)
	if len(runes) <= window {
		return strings.TrimSpace(text)
	}
	start := len(runes) - window
	if runes[start-1] != ' ' && runes[start] != ' ' {
		for start < len(runes) && runes[start] != ' ' {
			start++
		}
	}
	return strings.TrimSpace(string(runes[start:]))
}
