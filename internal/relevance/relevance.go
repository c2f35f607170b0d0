// Package relevance gates which articles proceed to storage.
package relevance

import "strings"

// Filter decides whether an article is in scope for the target locality.
// The zero value matches nothing; Debug passes everything through.
type Filter struct {
	City     string
	Keywords []string
	Debug    bool
}

// New creates a relevance filter.
func New(city string, keywords []string, debug bool) *Filter {
	return &Filter{City: city, Keywords: keywords, Debug: debug}
}

// IsRelevant reports whether the article mentions the target city and at
// least one configured keyword. Pure and deterministic given the inputs;
// Debug forces true regardless of content.
func (f *Filter) IsRelevant(title, text string) bool {
	if f.Debug {
		return true
	}

	combined := strings.ToLower(title + " " + text)
	if !strings.Contains(combined, strings.ToLower(f.City)) {
		return false
	}
	return ContainsKeywords(combined, f.Keywords)
}

// ContainsKeywords reports whether text contains any of the keywords,
// case-insensitively.
func ContainsKeywords(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
