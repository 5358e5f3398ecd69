package services

import (
	"context"
	"time"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/core/ports"
	"github.com/vibin/deepsearch-chat/internal/logger"
	"golang.org/x/sync/errgroup"
)

// LimitFunc derives how many results to request from a source given the
// caller's overall limit
type LimitFunc func(maxResults int) int

// SameLimit requests the caller's full limit
func SameLimit() LimitFunc { return func(n int) int { return n } }

// HalfLimit requests half the caller's limit, rounded down
func HalfLimit() LimitFunc { return func(n int) int { return n / 2 } }

// FixedLimit always requests n results
func FixedLimit(n int) LimitFunc { return func(int) int { return n } }

// SourceSpec registers a source in the aggregator's fan-out
type SourceSpec struct {
	Source ports.SearchSourcePort
	Limit  LimitFunc
	// Hidden sources are only queried when IncludeHidden is set
	Hidden bool
}

// AggregatorOptions holds the aggregator tunables
type AggregatorOptions struct {
	CacheTTL            time.Duration
	RecursiveThreshold  int
	MaxAlternateQueries int
	AlternateQueryLimit int
	Weights             RankingWeights
	Clock               Clock
	SearchLog           ports.SearchLogPort
}

// DefaultAggregatorOptions returns the stock tunables
func DefaultAggregatorOptions() AggregatorOptions {
	return AggregatorOptions{
		CacheTTL:            DefaultCacheTTL,
		RecursiveThreshold:  10,
		MaxAlternateQueries: 3,
		AlternateQueryLimit: 20,
		Weights:             DefaultRankingWeights(),
		Clock:               time.Now,
	}
}

// Aggregator fans a query out to every registered source, tolerates
// partial failure, falls back to reformulated queries when results are
// thin, then deduplicates, ranks and caches the outcome.
type Aggregator struct {
	primary    ports.SearchSourcePort
	sources    []SourceSpec
	ranker     *Ranker
	cache      *ResponseCache
	quickCache *ResponseCache
	opts       AggregatorOptions
	now        Clock
	searchLog  ports.SearchLogPort
	logger     logger.Logger
}

// NewAggregator creates an Aggregator. primary serves single-source mode,
// recursive fallback and quick searches; sources is the ordered multi-source
// fan-out and normally starts with primary.
func NewAggregator(primary ports.SearchSourcePort, sources []SourceSpec, opts AggregatorOptions, log logger.Logger) *Aggregator {
	defaults := DefaultAggregatorOptions()
	if opts.Clock == nil {
		opts.Clock = defaults.Clock
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaults.CacheTTL
	}
	if opts.RecursiveThreshold <= 0 {
		opts.RecursiveThreshold = defaults.RecursiveThreshold
	}
	if opts.MaxAlternateQueries <= 0 {
		opts.MaxAlternateQueries = defaults.MaxAlternateQueries
	}
	if opts.AlternateQueryLimit <= 0 {
		opts.AlternateQueryLimit = defaults.AlternateQueryLimit
	}
	if opts.Weights.SourceBoost == nil && opts.Weights.TitleMatch == 0 {
		opts.Weights = defaults.Weights
	}

	registered := make([]SourceSpec, 0, len(sources))
	for _, spec := range sources {
		if spec.Source == nil {
			continue
		}
		if spec.Limit == nil {
			spec.Limit = SameLimit()
		}
		registered = append(registered, spec)
	}

	return &Aggregator{
		primary:    primary,
		sources:    registered,
		ranker:     NewRanker(opts.Weights),
		cache:      NewResponseCache(opts.CacheTTL, opts.Clock),
		quickCache: NewResponseCache(opts.CacheTTL, opts.Clock),
		opts:       opts,
		now:        opts.Clock,
		searchLog:  opts.SearchLog,
		logger:     log,
	}
}

// DeepSearch runs an aggregated search. It never fails: when orchestration
// breaks down the caller receives a well-formed empty response.
func (a *Aggregator) DeepSearch(ctx context.Context, query string, opts domain.DeepSearchOptions) (resp *domain.SearchResponse) {
	opts = opts.Normalize()
	start := a.now()
	log := a.logger.WithFields(map[string]any{
		"query": query,
		"depth": opts.SearchDepth,
		"max":   opts.MaxResults,
	})
	log.Info("Deep search")

	key := cacheKey{query: query, depth: opts.SearchDepth, limit: opts.MaxResults}
	if cached, ok := a.cache.Get(key); ok {
		log.Info("Returning cached deep search results", "results", cached.TotalResults)
		a.record(ctx, cached, domain.SearchModeDeep, true, start)
		return cached
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Deep search failed", "panic", r)
			resp = domain.NewSearchResponse(query, nil, opts.SearchDepth, a.now())
		}
	}()

	results := a.collect(ctx, query, opts, log)

	if opts.Recursive && len(results) < a.opts.RecursiveThreshold {
		log.Info("Too few results, trying alternative queries", "results", len(results))
		results = a.recurse(ctx, query, opts.MaxResults, results)
	}

	ranked := a.ranker.Rank(dedupeByURL(results), query)
	if len(ranked) > opts.MaxResults {
		ranked = ranked[:opts.MaxResults:opts.MaxResults]
	}

	resp = domain.NewSearchResponse(query, ranked, opts.SearchDepth, a.now())
	if ctx.Err() == nil {
		a.cache.Set(key, resp)
	} else {
		log.Warn("Search context ended, not caching response", "error", ctx.Err())
	}

	log.Info("Deep search complete", "results", resp.TotalResults, "duration", a.now().Sub(start))
	a.record(ctx, resp, domain.SearchModeDeep, false, start)
	return resp
}

// QuickSearch is the lightweight mode: the primary engine only, cached by
// query alone, results in provider order. Empty responses are not cached.
func (a *Aggregator) QuickSearch(ctx context.Context, query string, maxResults int) (resp *domain.SearchResponse) {
	if maxResults < 1 {
		maxResults = domain.DefaultQuickMaxResults
	}
	start := a.now()
	log := a.logger.WithField("query", query)

	key := cacheKey{query: query}
	if cached, ok := a.quickCache.Get(key); ok {
		log.Info("Returning cached search results")
		a.record(ctx, cached, domain.SearchModeQuick, true, start)
		return cached
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Quick search failed", "panic", r)
			resp = domain.NewSearchResponse(query, nil, domain.DepthSurface, a.now())
		}
	}()

	log.Info("Performing web search")
	results := a.searchSource(ctx, a.primary, query, maxResults, log)
	resp = domain.NewSearchResponse(query, results, domain.DepthSurface, a.now())
	// An empty answer is how a failed fetch looks, so it is never cached.
	if ctx.Err() == nil && len(results) > 0 {
		a.quickCache.Set(key, resp)
	}
	a.record(ctx, resp, domain.SearchModeQuick, false, start)
	return resp
}

// ClearCache drops all cached responses
func (a *Aggregator) ClearCache() {
	a.cache.Clear()
	a.quickCache.Clear()
	a.logger.Info("Search caches cleared")
}

// SourceNames lists the registered sources in fan-out order
func (a *Aggregator) SourceNames() []string {
	names := make([]string, 0, len(a.sources))
	for _, spec := range a.sources {
		names = append(names, spec.Source.Name())
	}
	return names
}

// collect queries the sources concurrently and concatenates their results in
// registration order. A source that fails contributes nothing.
func (a *Aggregator) collect(ctx context.Context, query string, opts domain.DeepSearchOptions, log logger.Logger) []domain.SearchResult {
	if !opts.EnableMultiSource {
		return a.searchSource(ctx, a.primary, query, opts.MaxResults, log)
	}

	specs := make([]SourceSpec, 0, len(a.sources))
	for _, spec := range a.sources {
		if spec.Hidden && !opts.IncludeHidden {
			continue
		}
		specs = append(specs, spec)
	}

	log.Info("Searching multiple sources", "sources", len(specs))
	buckets := make([][]domain.SearchResult, len(specs))

	var g errgroup.Group
	for i, spec := range specs {
		limit := spec.Limit(opts.MaxResults)
		g.Go(func() error {
			buckets[i] = a.searchSource(ctx, spec.Source, query, limit, log)
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.SearchResult
	for i, bucket := range buckets {
		log.Debug("Source settled", "source", specs[i].Source.Name(), "results", len(bucket))
		all = append(all, bucket...)
	}
	return all
}

// recurse issues the primary engine against reformulated queries until the
// alternates run out or enough results have accumulated. A short result set
// is accepted when both limits are hit.
func (a *Aggregator) recurse(ctx context.Context, query string, maxResults int, results []domain.SearchResult) []domain.SearchResult {
	for i, alt := range alternativeQueries(query) {
		if i >= a.opts.MaxAlternateQueries || ctx.Err() != nil {
			break
		}
		more := a.searchSource(ctx, a.primary, alt, a.opts.AlternateQueryLimit, a.logger)
		a.logger.Debug("Alternative query settled", "query", alt, "results", len(more))
		results = append(results, more...)
		if len(results) >= maxResults {
			break
		}
	}
	return results
}

// searchSource calls one source, absorbing panics and enforcing its limit
func (a *Aggregator) searchSource(ctx context.Context, source ports.SearchSourcePort, query string, limit int, log logger.Logger) (results []domain.SearchResult) {
	if source == nil || limit <= 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("Search source panicked", "source", source.Name(), "panic", r)
			results = nil
		}
	}()

	results = source.Search(ctx, query, limit)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (a *Aggregator) record(ctx context.Context, resp *domain.SearchResponse, mode string, cacheHit bool, start time.Time) {
	if a.searchLog == nil {
		return
	}
	entry := domain.SearchLogEntry{
		Query:       resp.Query,
		Mode:        mode,
		Depth:       resp.SearchDepth,
		ResultCount: resp.TotalResults,
		CacheHit:    cacheHit,
		Duration:    a.now().Sub(start),
		CreatedAt:   a.now(),
	}
	// The log outlives a severed client connection.
	if err := a.searchLog.Record(context.WithoutCancel(ctx), entry); err != nil {
		a.logger.Warn("Failed to record search", "query", resp.Query, "error", err)
	}
}
