package llm

import "strings"

// CleanJSONResponse strips the decoration LLMs wrap around JSON output.
// Applied in order: remove fenced code-block markers, discard anything
// before the first '{', discard anything after the last '}'.
func CleanJSONResponse(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	if start := strings.Index(text, "{"); start > 0 {
		text = text[start:]
	}
	if end := strings.LastIndex(text, "}"); end >= 0 {
		text = text[:end+1]
	}

	return strings.TrimSpace(text)
}
