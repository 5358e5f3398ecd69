package websearch

import (
	"context"
	"net/url"
	"strconv"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

const snippetLength = 200

type stackExchangeResponse struct {
	Items []struct {
		Title        string  `json:"title"`
		Link         string  `json:"link"`
		BodyMarkdown string  `json:"body_markdown"`
		Score        float64 `json:"score"`
	} `json:"items"`
}

// StackOverflowAdapter queries the Stack Exchange advanced search API
type StackOverflowAdapter struct {
	baseURL string
	fetcher *Fetcher
	logger  logger.Logger
}

// NewStackOverflowAdapter creates a new StackOverflowAdapter
func NewStackOverflowAdapter(baseURL string, fetcher *Fetcher, log logger.Logger) *StackOverflowAdapter {
	return &StackOverflowAdapter{
		baseURL: baseURL,
		fetcher: fetcher,
		logger:  log.WithField("source", domain.SourceStackOverflow),
	}
}

// Name implements ports.SearchSourcePort
func (a *StackOverflowAdapter) Name() string { return domain.SourceStackOverflow }

// Search implements ports.SearchSourcePort
func (a *StackOverflowAdapter) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	params := url.Values{
		"order":    {"desc"},
		"sort":     {"relevance"},
		"q":        {query},
		"site":     {"stackoverflow"},
		"pagesize": {strconv.Itoa(limit)},
		"filter":   {"withbody"},
	}

	var resp stackExchangeResponse
	if err := a.fetcher.GetJSON(ctx, a.baseURL, params, nil, &resp); err != nil {
		logFailure(a.logger, a.Name(), query, err)
		return nil
	}

	results := make([]domain.SearchResult, 0, min(limit, len(resp.Items)))
	for _, item := range resp.Items {
		if len(results) >= limit {
			break
		}
		snippet := truncate(item.BodyMarkdown, snippetLength)
		if snippet == "" {
			snippet = "StackOverflow question"
		}
		results = append(results, domain.SearchResult{
			Title:     CleanText(item.Title),
			URL:       item.Link,
			Snippet:   CleanText(snippet),
			Source:    domain.SourceStackOverflow,
			Relevance: item.Score,
		})
	}
	return results
}
