package websearch

import (
	"bytes"
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

// noDescription stands in for a missing result snippet
const noDescription = "No description available"

// DuckDuckGoAdapter scrapes the DuckDuckGo HTML endpoint. It is the primary
// engine: it serves single-source mode, quick searches and the recursive
// fallback.
type DuckDuckGoAdapter struct {
	baseURL string
	fetcher *Fetcher
	logger  logger.Logger
}

// NewDuckDuckGoAdapter creates a new DuckDuckGoAdapter
func NewDuckDuckGoAdapter(baseURL string, fetcher *Fetcher, log logger.Logger) *DuckDuckGoAdapter {
	return &DuckDuckGoAdapter{
		baseURL: baseURL,
		fetcher: fetcher,
		logger:  log.WithField("source", domain.SourceDuckDuckGo),
	}
}

// Name implements ports.SearchSourcePort
func (a *DuckDuckGoAdapter) Name() string { return domain.SourceDuckDuckGo }

// Search implements ports.SearchSourcePort
func (a *DuckDuckGoAdapter) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	body, err := a.fetcher.Get(ctx, a.baseURL, url.Values{"q": {query}}, map[string]string{
		"Accept":          "text/html",
		"Accept-Language": "en-US,en;q=0.9",
	})
	if err != nil {
		logFailure(a.logger, a.Name(), query, err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		logFailure(a.logger, a.Name(), query, err)
		return nil
	}

	var results []domain.SearchResult
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(results) >= limit {
			return false
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		title := CleanText(link.Text())
		if !ok || href == "" || title == "" {
			return true
		}
		snippet := CleanText(s.Find(".result__snippet").First().Text())
		if snippet == "" {
			snippet = noDescription
		}
		results = append(results, domain.SearchResult{
			Title:   title,
			URL:     CleanURL(resolveLink(href)),
			Snippet: snippet,
			Source:  domain.SourceDuckDuckGo,
		})
		return true
	})

	a.logger.Debug("Parsed results", "query", query, "results", len(results))
	return results
}
