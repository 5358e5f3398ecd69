package websearch

import (
	"bytes"
	"context"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

// BingAdapter scrapes Bing's result page
type BingAdapter struct {
	baseURL string
	fetcher *Fetcher
	logger  logger.Logger
}

// NewBingAdapter creates a new BingAdapter
func NewBingAdapter(baseURL string, fetcher *Fetcher, log logger.Logger) *BingAdapter {
	return &BingAdapter{
		baseURL: baseURL,
		fetcher: fetcher,
		logger:  log.WithField("source", domain.SourceBing),
	}
}

// Name implements ports.SearchSourcePort
func (a *BingAdapter) Name() string { return domain.SourceBing }

// Search implements ports.SearchSourcePort
func (a *BingAdapter) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	params := url.Values{
		"q":     {query},
		"count": {strconv.Itoa(limit)},
	}
	body, err := a.fetcher.Get(ctx, a.baseURL, params, map[string]string{
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
	doc.Find("li.b_algo").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(results) >= limit {
			return false
		}
		link := s.Find("h2 a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}
		results = append(results, domain.SearchResult{
			Title:   CleanText(link.Text()),
			URL:     href,
			Snippet: CleanText(s.Find("p").First().Text()),
			Source:  domain.SourceBing,
		})
		return true
	})

	a.logger.Debug("Parsed results", "query", query, "results", len(results))
	return results
}
