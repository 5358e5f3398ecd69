package websearch

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

// braveMaxCount is the largest page size the Brave API accepts
const braveMaxCount = 20

// braveSearchResponse is the subset of the Brave Search API response we read
type braveSearchResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// BraveAdapter queries the Brave Search API. It needs a subscription token.
type BraveAdapter struct {
	baseURL string
	apiKey  string
	fetcher *Fetcher
	logger  logger.Logger
}

// NewBraveAdapter creates a new BraveAdapter
func NewBraveAdapter(baseURL, apiKey string, fetcher *Fetcher, log logger.Logger) *BraveAdapter {
	return &BraveAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		fetcher: fetcher,
		logger:  log.WithField("source", domain.SourceBrave),
	}
}

// Name implements ports.SearchSourcePort
func (a *BraveAdapter) Name() string { return domain.SourceBrave }

// Search implements ports.SearchSourcePort
func (a *BraveAdapter) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	if a.apiKey == "" {
		logFailure(a.logger, a.Name(), query, errors.New("Brave API key is not configured"))
		return nil
	}

	params := url.Values{
		"q":        {query},
		"count":    {strconv.Itoa(min(limit, braveMaxCount))},
		"offset":   {"0"},
		"country":  {"US"},
		"language": {"en"},
	}
	headers := map[string]string{"X-Subscription-Token": a.apiKey}

	var resp braveSearchResponse
	if err := a.fetcher.GetJSON(ctx, a.baseURL, params, headers, &resp); err != nil {
		logFailure(a.logger, a.Name(), query, err)
		return nil
	}

	var results []domain.SearchResult
	for _, item := range resp.Web.Results {
		if len(results) >= limit {
			break
		}
		results = append(results, domain.SearchResult{
			Title:   CleanText(item.Title),
			URL:     item.URL,
			Snippet: CleanText(stripTags(item.Description)),
			Source:  domain.SourceBrave,
		})
	}
	return results
}

// stripTags drops the highlight markup Brave puts into descriptions
func stripTags(fragment string) string {
	if !strings.ContainsRune(fragment, '<') {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}
