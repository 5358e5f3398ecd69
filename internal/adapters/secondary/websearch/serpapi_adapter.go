package websearch

import (
	"context"
	"errors"
	"strconv"

	serpapi "github.com/serpapi/google-search-results-golang"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

// SerpAPIAdapter queries Google through SerpAPI. It needs an API key and is
// only registered when one is configured.
type SerpAPIAdapter struct {
	apiKey  string
	fetcher *Fetcher
	logger  logger.Logger
}

// NewSerpAPIAdapter creates a new SerpAPIAdapter
func NewSerpAPIAdapter(apiKey string, fetcher *Fetcher, log logger.Logger) *SerpAPIAdapter {
	return &SerpAPIAdapter{
		apiKey:  apiKey,
		fetcher: fetcher,
		logger:  log.WithField("source", domain.SourceGoogle),
	}
}

// Name implements ports.SearchSourcePort
func (a *SerpAPIAdapter) Name() string { return domain.SourceGoogle }

// Search implements ports.SearchSourcePort
func (a *SerpAPIAdapter) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	if a.apiKey == "" {
		logFailure(a.logger, a.Name(), query, errors.New("SerpAPI key is not configured"))
		return nil
	}
	if err := a.fetcher.Wait(ctx); err != nil {
		logFailure(a.logger, a.Name(), query, err)
		return nil
	}

	parameters := map[string]string{
		"q":             query,
		"engine":        "google",
		"google_domain": "google.com",
		"gl":            "us",
		"hl":            "en",
		"num":           strconv.Itoa(limit),
	}

	type outcome struct {
		data map[string]interface{}
		err  error
	}
	// The client has no context support, so a cancelled search abandons the call.
	done := make(chan outcome, 1)
	go func() {
		search := serpapi.NewGoogleSearch(parameters, a.apiKey)
		data, err := search.GetJSON()
		done <- outcome{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		logFailure(a.logger, a.Name(), query, ctx.Err())
		return nil
	case out := <-done:
		if out.err != nil {
			logFailure(a.logger, a.Name(), query, out.err)
			return nil
		}
		return parseOrganicResults(out.data, limit)
	}
}

// parseOrganicResults extracts the organic results from a SerpAPI response
func parseOrganicResults(data map[string]interface{}, limit int) []domain.SearchResult {
	organic, ok := data["organic_results"].([]interface{})
	if !ok {
		return nil
	}

	var results []domain.SearchResult
	for _, item := range organic {
		if len(results) >= limit {
			break
		}
		resultMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		link := getStringValue(resultMap, "link")
		if link == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			Title:   CleanText(getStringValue(resultMap, "title")),
			URL:     link,
			Snippet: CleanText(getStringValue(resultMap, "snippet")),
			Source:  domain.SourceGoogle,
		})
	}
	return results
}

// getStringValue safely extracts a string value from a decoded JSON object
func getStringValue(data map[string]interface{}, key string) string {
	if value, ok := data[key].(string); ok {
		return value
	}
	return ""
}
