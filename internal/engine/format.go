package engine

import "strings"

// FormatSnippets reduces a snippet sequence to normalized plain text:
// each snippet trimmed, blank ones dropped, the rest joined with single
// spaces in original order. Temporal order is reading order.
// Returns ErrEmptyTranscript when nothing survives filtering.
func FormatSnippets(snippets []Snippet) (string, error) {
	var sb strings.Builder
	for _, s := range snippets {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	if sb.Len() == 0 {
		return "", ErrEmptyTranscript
	}
	return sb.String(), nil
}
