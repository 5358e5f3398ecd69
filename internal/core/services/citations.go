package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
)

// MaxCitations is how many sources are listed after a streamed answer
const MaxCitations = 10

// FormatCitations renders the sources block appended to a streamed answer.
// It returns "" when there is nothing to cite.
func FormatCitations(results []domain.SearchResult, limit int) string {
	if len(results) == 0 || limit <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\n**Sources:**\n")
	for i, result := range results[:min(limit, len(results))] {
		fmt.Fprintf(&sb, "[%d] [%s](%s)", i+1, result.Title, result.URL)
		if result.Source != "" {
			fmt.Fprintf(&sb, " - %s", result.Source)
		}
		sb.WriteString("\n")
	}

	if extra := len(results) - limit; extra > 0 {
		fmt.Fprintf(&sb, "\n_...and %d more sources_\n", extra)
	}
	return sb.String()
}

// formatSearchResultsForLLM turns quick search results into a prompt that
// replaces the user's last message on the non-streaming path
func formatSearchResultsForLLM(userQuery string, results []domain.SearchResult, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "I need information about: %s\n\n", userQuery)
	fmt.Fprintf(&sb, "The current date and time is: %s\n\n", now.Format("Monday, January 2, 2006 at 15:04 MST"))
	sb.WriteString("Here is the latest information I found from web search:\n\n")

	for i, result := range results[:min(domain.DefaultQuickMaxResults, len(results))] {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, result.Title)
		fmt.Fprintf(&sb, "Link: %s\n", result.URL)
		fmt.Fprintf(&sb, "Snippet: %s\n\n", result.Snippet)
	}

	sb.WriteString("Based on the above information, please provide a helpful, accurate, and concise response to my query. ")
	sb.WriteString("Cite specific sources where appropriate by referring to the search result number. ")
	sb.WriteString("If the search results don't provide sufficient information, please clearly indicate this and give the best response you can based on your knowledge.")
	return sb.String()
}
