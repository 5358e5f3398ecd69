package websearch

import (
	"context"
	"net/url"
	"strconv"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

const redditHost = "https://reddit.com"

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title     string  `json:"title"`
				Permalink string  `json:"permalink"`
				Selftext  string  `json:"selftext"`
				Score     float64 `json:"score"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// RedditAdapter queries Reddit's public search listing
type RedditAdapter struct {
	baseURL string
	fetcher *Fetcher
	logger  logger.Logger
}

// NewRedditAdapter creates a new RedditAdapter
func NewRedditAdapter(baseURL string, fetcher *Fetcher, log logger.Logger) *RedditAdapter {
	return &RedditAdapter{
		baseURL: baseURL,
		fetcher: fetcher,
		logger:  log.WithField("source", domain.SourceReddit),
	}
}

// Name implements ports.SearchSourcePort
func (a *RedditAdapter) Name() string { return domain.SourceReddit }

// Search implements ports.SearchSourcePort
func (a *RedditAdapter) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	params := url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(limit)},
	}

	var listing redditListing
	if err := a.fetcher.GetJSON(ctx, a.baseURL, params, nil, &listing); err != nil {
		logFailure(a.logger, a.Name(), query, err)
		return nil
	}

	var results []domain.SearchResult
	for _, child := range listing.Data.Children {
		if len(results) >= limit {
			break
		}
		post := child.Data
		snippet := post.Selftext
		if snippet == "" {
			snippet = post.Title
		}
		results = append(results, domain.SearchResult{
			Title:     CleanText(post.Title),
			URL:       redditHost + post.Permalink,
			Snippet:   CleanText(truncate(snippet, snippetLength)),
			Source:    domain.SourceReddit,
			Relevance: post.Score,
		})
	}
	return results
}
