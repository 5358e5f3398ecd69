package domain

import "errors"

// Event names exchanged over the socket
const (
	EventChatMessage = "chat:message"
	EventSearchDeep  = "search:deep"
	EventModelsGet   = "models:get"

	EventSearchStart   = "search:start"
	EventSearchResults = "search:results"
	EventSearchError   = "search:error"
	EventChatStart     = "chat:start"
	EventChatChunk     = "chat:chunk"
	EventChatError     = "chat:error"
	EventChatComplete  = "chat:complete"
	EventModelsList    = "models:list"
)

// ErrInvalidRequest marks a request rejected before any work was started
var ErrInvalidRequest = errors.New("invalid request")

// SearchStartPayload is sent when an aggregated search begins
type SearchStartPayload struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
}

// SearchResultsPayload carries a finished aggregation to the client
type SearchResultsPayload struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"totalResults"`
	SearchDepth  SearchDepth    `json:"searchDepth"`
}

// NewSearchResultsPayload converts a response into its event payload
func NewSearchResultsPayload(resp *SearchResponse) SearchResultsPayload {
	return SearchResultsPayload{
		Query:        resp.Query,
		Results:      resp.Results,
		TotalResults: resp.TotalResults,
		SearchDepth:  resp.SearchDepth,
	}
}

// ChatStartPayload announces the model that is generating
type ChatStartPayload struct {
	Model string `json:"model"`
}

// ChunkPayload carries one generated fragment
type ChunkPayload struct {
	Content string `json:"content"`
}

// ErrorPayload carries a failure message
type ErrorPayload struct {
	Message string `json:"message"`
}

// ModelsPayload answers models:get
type ModelsPayload struct {
	Models []ModelInfo `json:"models"`
}
