package engine

import "strings"

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject locates the outermost {...} span in free-form model
// output. Models wrap JSON in prose, fences, or trailing chatter; the
// first '{' and last '}' bound the object we asked for. Returns nil when
// no object delimiters are present.
func ExtractJSONObject(raw string) []byte {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil
	}
	return []byte(raw[start : end+1])
}
