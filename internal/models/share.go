package models

import (
	"strings"
	"unicode/utf8"
)

// SuggestionContext is what a share-message suggester knows about the studio and,
// optionally, the client the message is meant for.
type SuggestionContext struct {
	StudioName   string `json:"studio_name"`
	CalendarLink string `json:"calendar_link"`
	ClientName   string `json:"client_name,omitempty"`
	// PastSummary describes the client's previous projects, e.g. "podcast, jingles".
	PastSummary  string `json:"past_summary,omitempty"`
	PastSessions int    `json:"past_sessions,omitempty"`
	Language     string `json:"language,omitempty"`
}

// TruncateMessage caps s at max runes, ending a shortened message with an ellipsis.
func TruncateMessage(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
