package services

import (
	"strings"
)

// DefaultQuickKeywords trigger the lightweight single-engine search
var DefaultQuickKeywords = []string{
	"latest", "recent", "current", "news", "today",
	"what is", "who is", "when did", "where is",
	"search for", "find", "look up",
	"price of", "weather", "stock",
	"2024", "2025", "2026", "now",
}

// DefaultDeepKeywords trigger the aggregated multi-source search
var DefaultDeepKeywords = []string{
	"hidden", "obscure", "rare", "find", "search for",
	"deep", "advanced", "technical", "specific",
	"how to find", "where can i", "looking for",
}

// SearchTrigger decides from the text of a message whether to search at all.
// Matching is a case-insensitive substring test, nothing more.
type SearchTrigger struct {
	quick []string
	deep  []string
}

// NewSearchTrigger creates a trigger. Empty keyword lists fall back to the defaults.
func NewSearchTrigger(quick, deep []string) *SearchTrigger {
	if len(quick) == 0 {
		quick = DefaultQuickKeywords
	}
	if len(deep) == 0 {
		deep = DefaultDeepKeywords
	}
	return &SearchTrigger{
		quick: lowerAll(quick),
		deep:  lowerAll(deep),
	}
}

// ShouldSearch reports whether the lightweight search should run for query
func (t *SearchTrigger) ShouldSearch(query string) bool {
	return containsAny(query, t.quick)
}

// ShouldUseDeepSearch reports whether the aggregated search should run for query
func (t *SearchTrigger) ShouldUseDeepSearch(query string) bool {
	return containsAny(query, t.deep)
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
