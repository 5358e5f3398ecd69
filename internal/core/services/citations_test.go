package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
)

func TestFormatCitations(t *testing.T) {
	res := []domain.SearchResult{
		{Title: "Go", URL: "https://go.dev", Source: domain.SourceDuckDuckGo},
		{Title: "No source", URL: "https://example.com"},
	}

	want := "\n\n**Sources:**\n" +
		"[1] [Go](https://go.dev) - DuckDuckGo\n" +
		"[2] [No source](https://example.com)\n"
	assert.Equal(t, want, FormatCitations(res, MaxCitations))
}

func TestFormatCitationsTruncates(t *testing.T) {
	var res []domain.SearchResult
	for i := range 13 {
		res = append(res, domain.SearchResult{Title: fmt.Sprint(i), URL: fmt.Sprintf("https://%d.example", i), Source: "X"})
	}

	out := FormatCitations(res, MaxCitations)
	assert.Contains(t, out, "[10] [9](https://9.example) - X\n")
	assert.NotContains(t, out, "[11]")
	assert.True(t, strings.HasSuffix(out, "\n_...and 3 more sources_\n"))
}

func TestFormatCitationsEmpty(t *testing.T) {
	assert.Empty(t, FormatCitations(nil, MaxCitations))
	assert.Empty(t, FormatCitations([]domain.SearchResult{{URL: "x"}}, 0))
}

func TestFormatSearchResultsForLLM(t *testing.T) {
	var res []domain.SearchResult
	for i := range 7 {
		res = append(res, domain.SearchResult{Title: fmt.Sprintf("T%d", i), URL: fmt.Sprintf("https://%d", i), Snippet: "s"})
	}
	now := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	prompt := formatSearchResultsForLLM("go 1.25", res, now)
	assert.Contains(t, prompt, "I need information about: go 1.25")
	assert.Contains(t, prompt, "Monday, June 2, 2025 at 09:30 UTC")
	assert.Contains(t, prompt, "[5] T4\nLink: https://4\n")
	assert.NotContains(t, prompt, "[6]")
}
