package domain

import (
	"strings"
	"time"
)

// SearchDepth labels how thorough an aggregated search was
type SearchDepth string

const (
	DepthSurface SearchDepth = "surface"
	DepthDeep    SearchDepth = "deep"
	DepthExpert  SearchDepth = "expert"
)

// Valid reports whether d is one of the known depths
func (d SearchDepth) Valid() bool {
	switch d {
	case DepthSurface, DepthDeep, DepthExpert:
		return true
	}
	return false
}

// Source names attached to results by the adapters. The ranker keys its source boosts on these.
const (
	SourceDuckDuckGo    = "DuckDuckGo"
	SourceBing          = "Bing"
	SourceStackOverflow = "StackOverflow"
	SourceGitHub        = "GitHub"
	SourceReddit        = "Reddit"
	SourceGoogle        = "Google"
	SourceBrave         = "Brave"
)

// SearchResult is a single normalized search hit.
//
// URL is the de-redirected destination, Title and Snippet carry no markup.
// A zero Relevance means the provider supplied no score.
type SearchResult struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Source    string  `json:"source,omitempty"`
	Relevance float64 `json:"relevance,omitempty"`
}

// SearchResponse is the frozen output of one aggregation. Results are deduplicated
// by URL and sorted by descending relevance. Callers must not modify it: the cache
// hands the same value to every reader.
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	Timestamp    time.Time      `json:"timestamp"`
	SearchDepth  SearchDepth    `json:"searchDepth"`
	TotalResults int            `json:"totalResults"`
}

// NewSearchResponse builds a response whose TotalResults matches its results
func NewSearchResponse(query string, results []SearchResult, depth SearchDepth, at time.Time) *SearchResponse {
	if results == nil {
		results = []SearchResult{}
	}
	return &SearchResponse{
		Query:        query,
		Results:      results,
		Timestamp:    at,
		SearchDepth:  depth,
		TotalResults: len(results),
	}
}

// Default deep search settings
const (
	DefaultDeepMaxResults  = 50
	DefaultQuickMaxResults = 5
)

// DeepSearchOptions configures one aggregated search
type DeepSearchOptions struct {
	MaxResults        int         `json:"maxResults"`
	SearchDepth       SearchDepth `json:"searchDepth"`
	EnableMultiSource bool        `json:"enableMultiSource"`
	Recursive         bool        `json:"recursive"`
	IncludeHidden     bool        `json:"includeHidden"`
}

// DefaultDeepSearchOptions returns the options used when a caller has no preference
func DefaultDeepSearchOptions() DeepSearchOptions {
	return DeepSearchOptions{
		MaxResults:        DefaultDeepMaxResults,
		SearchDepth:       DepthDeep,
		EnableMultiSource: true,
		Recursive:         true,
		IncludeHidden:     true,
	}
}

// Normalize fills in a missing result limit and depth
func (o DeepSearchOptions) Normalize() DeepSearchOptions {
	if o.MaxResults < 1 {
		o.MaxResults = DefaultDeepMaxResults
	}
	if !o.SearchDepth.Valid() {
		o.SearchDepth = DepthDeep
	}
	return o
}

// ManualSearchRequest is the payload of a search:deep event
type ManualSearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults,omitempty"`
}

// Normalize trims the query and applies the default limit
func (r ManualSearchRequest) Normalize() ManualSearchRequest {
	r.Query = strings.TrimSpace(r.Query)
	if r.MaxResults < 1 {
		r.MaxResults = DefaultDeepMaxResults
	}
	return r
}

// Search modes recorded in the search log and sent with search:start
const (
	SearchModeDeep  = "deep"
	SearchModeQuick = "quick"
)

// SearchLogEntry records one executed search
type SearchLogEntry struct {
	ID          int64         `json:"id"`
	Query       string        `json:"query"`
	Mode        string        `json:"mode"`
	Depth       SearchDepth   `json:"depth"`
	ResultCount int           `json:"result_count"`
	CacheHit    bool          `json:"cache_hit"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}
