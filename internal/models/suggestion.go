package models

// Suggestion is a single text completion candidate offered to the editor.
type Suggestion struct {
	Text        string `json:"text"`
	Source      Source `json:"source"`
	Attribution string `json:"attribution,omitempty"`
}

// SuggestionResponse carries the suggestions produced for one request.
type SuggestionResponse struct {
	RequestID   uint64       `json:"request_id"`
	Suggestions []Suggestion `json:"suggestions"`
	QueryTime   int64        `json:"query_time_ms"`
}
