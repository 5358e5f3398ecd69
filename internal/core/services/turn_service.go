package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vibin/deepsearch-chat/config"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/core/ports"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

// ErrSearchDisabled is returned for search requests when web search is switched off
var ErrSearchDisabled = errors.New("web search is disabled")

// Searcher runs web searches. *Aggregator implements it.
type Searcher interface {
	DeepSearch(ctx context.Context, query string, opts domain.DeepSearchOptions) *domain.SearchResponse
	QuickSearch(ctx context.Context, query string, maxResults int) *domain.SearchResponse
}

// TurnService coordinates chat turns: it streams generation immediately,
// runs web search alongside it and joins the two before completing.
type TurnService struct {
	llm          ports.LLMPort
	searcher     Searcher
	trigger      *SearchTrigger
	defaultModel string
	defaults     domain.CompletionOptions
	webSearch    bool
	now          Clock
	logger       logger.Logger
}

// NewTurnService creates a new TurnService. searcher may be nil when web
// search is disabled.
func NewTurnService(llm ports.LLMPort, searcher Searcher, trigger *SearchTrigger, cfg *config.Config, log logger.Logger) *TurnService {
	if trigger == nil {
		trigger = NewSearchTrigger(cfg.WebSearch.QuickKeywords, cfg.WebSearch.DeepKeywords)
	}
	return &TurnService{
		llm:          llm,
		searcher:     searcher,
		trigger:      trigger,
		defaultModel: cfg.LLM.DefaultModel,
		defaults: domain.CompletionOptions{
			Temperature: cfg.LLM.DefaultTemperature,
			MaxTokens:   cfg.LLM.DefaultMaxTokens,
		},
		webSearch: cfg.WebSearch.Enabled && searcher != nil,
		now:       time.Now,
		logger:    log,
	}
}

// RunTurn handles one chat:message. Fragments reach sink in the order the
// provider produces them; the citation block, when there is one, is always
// the last fragment. Generation failures are reported to sink and returned;
// search failures only mean there is nothing to cite.
func (s *TurnService) RunTurn(ctx context.Context, req domain.ChatTurnRequest, sink ports.EventSink) error {
	if err := req.Validate(); err != nil {
		s.logger.Warn("Rejected chat turn", "error", err)
		_ = sink.Emit(ctx, domain.EventChatError, domain.ErrorPayload{Message: err.Error()})
		return err
	}

	log := s.logger.WithField("turn_id", uuid.NewString())
	model := s.modelFor(req)
	query := req.LastContent()

	var searchDone chan []domain.SearchResult
	if req.EnableWebSearch && s.webSearch && s.trigger.ShouldUseDeepSearch(query) {
		searchDone = make(chan []domain.SearchResult, 1)
		log.Info("Starting deep search alongside generation", "query", query)
		_ = sink.Emit(ctx, domain.EventSearchStart, domain.SearchStartPayload{Query: query, Mode: domain.SearchModeDeep})
		go s.searchBranch(ctx, query, sink, searchDone, log)
	}

	log.Info("Streaming chat response", "model", model, "messages", len(req.Messages))
	_ = sink.Emit(ctx, domain.EventChatStart, domain.ChatStartPayload{Model: model})

	err := s.llm.StreamCompletion(ctx, model, req.Messages, req.Options(s.defaults), func(fragment string) error {
		return sink.Emit(ctx, domain.EventChatChunk, domain.ChunkPayload{Content: fragment})
	})
	if err != nil {
		log.Error("Streaming failed", "error", err)
		_ = sink.Emit(ctx, domain.EventChatError, domain.ErrorPayload{Message: streamErrorMessage(err)})
		return fmt.Errorf("stream completion: %w", err)
	}

	if searchDone != nil {
		var results []domain.SearchResult
		select {
		case results = <-searchDone:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if citations := FormatCitations(results, MaxCitations); citations != "" {
			if err := sink.Emit(ctx, domain.EventChatChunk, domain.ChunkPayload{Content: citations}); err != nil {
				return fmt.Errorf("emit citations: %w", err)
			}
		}
	}

	log.Info("Chat turn complete")
	return sink.Emit(ctx, domain.EventChatComplete, struct{}{})
}

// searchBranch runs the aggregated search and always reports on done,
// with nil when the branch failed
func (s *TurnService) searchBranch(ctx context.Context, query string, sink ports.EventSink, done chan<- []domain.SearchResult, log logger.Logger) {
	var results []domain.SearchResult
	defer func() {
		if r := recover(); r != nil {
			log.Error("Search branch failed", "panic", r)
			results = nil
		}
		done <- results
	}()

	resp := s.searcher.DeepSearch(ctx, query, domain.DefaultDeepSearchOptions())
	if ctx.Err() != nil {
		return
	}
	results = resp.Results

	log.Info("Deep search finished", "results", resp.TotalResults)
	if err := sink.Emit(ctx, domain.EventSearchResults, domain.NewSearchResultsPayload(resp)); err != nil {
		log.Warn("Failed to deliver search results", "error", err)
	}
}

// ManualSearch handles an explicit search:deep request
func (s *TurnService) ManualSearch(ctx context.Context, req domain.ManualSearchRequest, sink ports.EventSink) error {
	req = req.Normalize()
	if req.Query == "" {
		err := fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
		_ = sink.Emit(ctx, domain.EventSearchError, domain.ErrorPayload{Message: err.Error()})
		return err
	}
	if !s.webSearch {
		_ = sink.Emit(ctx, domain.EventSearchError, domain.ErrorPayload{Message: ErrSearchDisabled.Error()})
		return ErrSearchDisabled
	}

	_ = sink.Emit(ctx, domain.EventSearchStart, domain.SearchStartPayload{Query: req.Query, Mode: domain.SearchModeDeep})
	resp := s.Search(ctx, req)
	return sink.Emit(ctx, domain.EventSearchResults, domain.NewSearchResultsPayload(resp))
}

// Search runs an expert-depth aggregated search for a normalized manual request
func (s *TurnService) Search(ctx context.Context, req domain.ManualSearchRequest) *domain.SearchResponse {
	req = req.Normalize()
	return s.searcher.DeepSearch(ctx, req.Query, domain.DeepSearchOptions{
		MaxResults:        req.MaxResults,
		SearchDepth:       domain.DepthExpert,
		EnableMultiSource: true,
		Recursive:         true,
		IncludeHidden:     true,
	})
}

// QuickSearch runs the lightweight search
func (s *TurnService) QuickSearch(ctx context.Context, query string, maxResults int) (*domain.SearchResponse, error) {
	if !s.webSearch {
		return nil, ErrSearchDisabled
	}
	return s.searcher.QuickSearch(ctx, query, maxResults), nil
}

// SendMessage generates a complete, non-streamed reply. When the quick
// trigger fires the last user message is replaced by a prompt carrying the
// search results.
func (s *TurnService) SendMessage(ctx context.Context, req domain.ChatTurnRequest) (*domain.ChatReply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	model := s.modelFor(req)
	query := req.LastContent()
	messages := req.Messages
	var sources []domain.SearchResult

	if req.EnableWebSearch && s.webSearch && s.trigger.ShouldSearch(query) {
		s.logger.Info("Using web search pipeline", "query", query)
		resp := s.searcher.QuickSearch(ctx, query, domain.DefaultQuickMaxResults)
		if len(resp.Results) > 0 {
			sources = resp.Results
			messages = make([]domain.Message, len(req.Messages))
			copy(messages, req.Messages)
			messages[len(messages)-1] = domain.NewMessage(domain.RoleUser, formatSearchResultsForLLM(query, sources, s.now()))
		}
	}

	s.logger.Info("Generating response", "model", model)
	content, err := s.llm.GenerateResponse(ctx, model, messages, req.Options(s.defaults))
	if err != nil {
		s.logger.Error("Failed to generate response", "error", err)
		return nil, fmt.Errorf("generate response: %w", err)
	}

	return &domain.ChatReply{Message: content, Model: model, Sources: sources}, nil
}

// Models returns the models offered by the gateway
func (s *TurnService) Models() []domain.ModelInfo {
	return s.llm.Models()
}

// ValidateConnection checks that the gateway is reachable
func (s *TurnService) ValidateConnection(ctx context.Context) error {
	return s.llm.Validate(ctx)
}

// WebSearchEnabled reports whether searches can run
func (s *TurnService) WebSearchEnabled() bool {
	return s.webSearch
}

func (s *TurnService) modelFor(req domain.ChatTurnRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return s.defaultModel
}

func streamErrorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Streaming failed"
}
