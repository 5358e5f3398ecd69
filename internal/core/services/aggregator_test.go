package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

type testSources struct {
	ddg, bing, so, github, reddit *fakeSource
}

func newTestSources() *testSources {
	return &testSources{
		ddg:    &fakeSource{name: domain.SourceDuckDuckGo},
		bing:   &fakeSource{name: domain.SourceBing},
		so:     &fakeSource{name: domain.SourceStackOverflow},
		github: &fakeSource{name: domain.SourceGitHub},
		reddit: &fakeSource{name: domain.SourceReddit},
	}
}

func (s *testSources) specs() []SourceSpec {
	return []SourceSpec{
		{Source: s.ddg, Limit: SameLimit()},
		{Source: s.bing, Limit: HalfLimit()},
		{Source: s.so, Limit: FixedLimit(10)},
		{Source: s.github, Limit: FixedLimit(10), Hidden: true},
		{Source: s.reddit, Limit: FixedLimit(10), Hidden: true},
	}
}

func newTestAggregator(s *testSources, clock *fakeClock, log *memoryLog) *Aggregator {
	opts := DefaultAggregatorOptions()
	opts.Clock = clock.Now
	if log != nil {
		opts.SearchLog = log
	}
	return NewAggregator(s.ddg, s.specs(), opts, logger.Discard())
}

func urlsOf(res []domain.SearchResult) []string {
	out := make([]string, 0, len(res))
	for _, r := range res {
		out = append(out, r.URL)
	}
	return out
}

func TestDeepSearchPartialFailure(t *testing.T) {
	s := newTestSources()
	s.ddg.fallback = results(domain.SourceDuckDuckGo, "d1", "d2", "d3", "d4", "d5", "d6", "d7", "d8", "d9", "d10")
	s.bing.panics = true
	s.so.fallback = results(domain.SourceStackOverflow, "s1")
	s.reddit.fallback = results(domain.SourceReddit, "r1")

	agg := newTestAggregator(s, newFakeClock(), nil)
	resp := agg.DeepSearch(context.Background(), "query", domain.DefaultDeepSearchOptions())

	require.NotNil(t, resp)
	assert.Equal(t, 12, resp.TotalResults)
	assert.Len(t, resp.Results, resp.TotalResults)
	assert.Equal(t, domain.DepthDeep, resp.SearchDepth)
	for _, r := range resp.Results {
		assert.NotEqual(t, domain.SourceBing, r.Source)
		assert.NotEqual(t, domain.SourceGitHub, r.Source)
	}
	assert.Equal(t, 1, s.bing.callCount())
	assert.Equal(t, 1, s.github.callCount())
}

func TestDeepSearchAllSourcesFail(t *testing.T) {
	s := newTestSources()
	for _, src := range []*fakeSource{s.ddg, s.bing, s.so, s.github, s.reddit} {
		src.panics = true
	}

	agg := newTestAggregator(s, newFakeClock(), nil)
	resp := agg.DeepSearch(context.Background(), "query", domain.DefaultDeepSearchOptions())

	require.NotNil(t, resp)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Zero(t, resp.TotalResults)
}

func TestDeepSearchDedupesAndRanks(t *testing.T) {
	s := newTestSources()
	s.ddg.fallback = []domain.SearchResult{
		{Title: "unrelated", URL: "https://shared", Source: domain.SourceDuckDuckGo},
		{Title: "golang tips", URL: "https://tips", Source: domain.SourceDuckDuckGo},
	}
	s.bing.fallback = []domain.SearchResult{
		{Title: "golang from bing", URL: "https://shared", Source: domain.SourceBing},
	}
	s.so.fallback = []domain.SearchResult{
		{Title: "question", URL: "https://so", Source: domain.SourceStackOverflow, Relevance: 1000},
	}

	agg := newTestAggregator(s, newFakeClock(), nil)
	opts := domain.DefaultDeepSearchOptions()
	opts.Recursive = false
	resp := agg.DeepSearch(context.Background(), "golang", opts)

	assert.Equal(t, []string{"https://tips", "https://so", "https://shared"}, urlsOf(resp.Results))
	assert.Equal(t, "unrelated", resp.Results[2].Title, "first occurrence of a URL wins")
	assert.Equal(t, float64(10), resp.Results[0].Relevance)
	assert.Equal(t, float64(8), resp.Results[1].Relevance)

	seen := map[string]bool{}
	for i, r := range resp.Results {
		assert.False(t, seen[r.URL], "duplicate %s", r.URL)
		seen[r.URL] = true
		if i > 0 {
			assert.GreaterOrEqual(t, resp.Results[i-1].Relevance, r.Relevance)
		}
	}
}

func TestDeepSearchTruncatesToMaxResults(t *testing.T) {
	s := newTestSources()
	var many []string
	for i := range 30 {
		many = append(many, fmt.Sprintf("https://%d", i))
	}
	s.ddg.fallback = results(domain.SourceDuckDuckGo, many...)

	agg := newTestAggregator(s, newFakeClock(), nil)
	resp := agg.DeepSearch(context.Background(), "q", domain.DeepSearchOptions{MaxResults: 7, EnableMultiSource: true})

	assert.Equal(t, 7, resp.TotalResults)
	assert.Equal(t, many[:7], urlsOf(resp.Results))
}

func TestDeepSearchSourceLimits(t *testing.T) {
	s := newTestSources()
	var many []string
	for i := range 40 {
		many = append(many, fmt.Sprintf("https://b%d", i))
	}
	s.bing.fallback = results(domain.SourceBing, many...)

	agg := newTestAggregator(s, newFakeClock(), nil)
	resp := agg.DeepSearch(context.Background(), "q", domain.DeepSearchOptions{MaxResults: 20, EnableMultiSource: true})

	assert.Equal(t, 10, resp.TotalResults, "secondary engine is asked for half the limit")
}

func TestDeepSearchCache(t *testing.T) {
	s := newTestSources()
	s.ddg.fallback = results(domain.SourceDuckDuckGo, "https://a")
	clock := newFakeClock()
	log := &memoryLog{}
	agg := newTestAggregator(s, clock, log)
	opts := domain.DefaultDeepSearchOptions()

	first := agg.DeepSearch(context.Background(), "cached", opts)
	calls := s.ddg.callCount()

	clock.Advance(30 * time.Minute)
	second := agg.DeepSearch(context.Background(), "cached", opts)
	assert.Same(t, first, second)
	assert.Equal(t, calls, s.ddg.callCount(), "cache hit makes no network calls")
	assert.Equal(t, 1, s.bing.callCount())

	other := opts
	other.MaxResults = 10
	agg.DeepSearch(context.Background(), "cached", other)
	assert.Equal(t, 2, s.bing.callCount(), "different limit is a different key")

	clock.Advance(31 * time.Minute)
	third := agg.DeepSearch(context.Background(), "cached", opts)
	assert.NotSame(t, first, third)
	assert.Equal(t, 3, s.bing.callCount(), "expired entry triggers a fresh fan-out")

	require.Len(t, log.entries, 4)
	assert.False(t, log.entries[0].CacheHit)
	assert.True(t, log.entries[1].CacheHit)
	assert.Equal(t, domain.SearchModeDeep, log.entries[1].Mode)
	assert.Equal(t, 1, log.entries[1].ResultCount)
}

func TestDeepSearchRecursiveFallback(t *testing.T) {
	s := newTestSources()
	var twelve []string
	for i := range 12 {
		twelve = append(twelve, fmt.Sprintf("https://alt/%d", i))
	}
	s.ddg.results = map[string][]domain.SearchResult{
		`"obscure thing"`: results(domain.SourceDuckDuckGo, twelve...),
	}

	agg := newTestAggregator(s, newFakeClock(), nil)
	resp := agg.DeepSearch(context.Background(), "obscure thing", domain.DefaultDeepSearchOptions())

	assert.ElementsMatch(t, twelve, urlsOf(resp.Results))
	assert.Equal(t, []string{
		"obscure thing",
		`"obscure thing"`,
		"obscure thing site:stackoverflow.com",
		"obscure thing site:github.com",
	}, s.ddg.queries(), "at most three alternates are tried")
	assert.Equal(t, 1, s.bing.callCount(), "alternates only go to the primary engine")
}

func TestDeepSearchRecursiveStopsAtMaxResults(t *testing.T) {
	s := newTestSources()
	s.ddg.results = map[string][]domain.SearchResult{
		`"q"`: results(domain.SourceDuckDuckGo, "1", "2", "3", "4", "5", "6"),
	}

	agg := newTestAggregator(s, newFakeClock(), nil)
	resp := agg.DeepSearch(context.Background(), "q", domain.DeepSearchOptions{MaxResults: 5, EnableMultiSource: true, Recursive: true})

	assert.Equal(t, 5, resp.TotalResults)
	assert.Equal(t, 2, s.ddg.callCount())
}

func TestDeepSearchNoRecursionAboveThreshold(t *testing.T) {
	s := newTestSources()
	s.ddg.fallback = results(domain.SourceDuckDuckGo, "1", "2", "3", "4", "5", "6", "7", "8", "9", "10")

	agg := newTestAggregator(s, newFakeClock(), nil)
	agg.DeepSearch(context.Background(), "q", domain.DefaultDeepSearchOptions())

	assert.Equal(t, 1, s.ddg.callCount())
}

func TestDeepSearchSingleSource(t *testing.T) {
	s := newTestSources()
	s.ddg.fallback = results(domain.SourceDuckDuckGo, "https://only")
	s.so.fallback = results(domain.SourceStackOverflow, "https://so")

	agg := newTestAggregator(s, newFakeClock(), nil)
	resp := agg.DeepSearch(context.Background(), "q", domain.DeepSearchOptions{MaxResults: 50})

	assert.Equal(t, []string{"https://only"}, urlsOf(resp.Results))
	assert.Zero(t, s.bing.callCount())
	assert.Zero(t, s.so.callCount())
}

func TestDeepSearchWithoutHiddenSources(t *testing.T) {
	s := newTestSources()
	agg := newTestAggregator(s, newFakeClock(), nil)

	opts := domain.DefaultDeepSearchOptions()
	opts.IncludeHidden = false
	opts.Recursive = false
	agg.DeepSearch(context.Background(), "q", opts)

	assert.Equal(t, 1, s.so.callCount())
	assert.Zero(t, s.github.callCount())
	assert.Zero(t, s.reddit.callCount())
}

func TestDeepSearchHalfLimitOfZeroSkipsSource(t *testing.T) {
	s := newTestSources()
	agg := newTestAggregator(s, newFakeClock(), nil)

	opts := domain.DefaultDeepSearchOptions()
	opts.MaxResults = 1
	opts.Recursive = false
	agg.DeepSearch(context.Background(), "q", opts)

	assert.Zero(t, s.bing.callCount())
}

// barrierSource blocks until every barrier source has been entered, so a
// sequential fan-out would never see results
type barrierSource struct {
	name string
	wg   *sync.WaitGroup
}

func (b *barrierSource) Name() string { return b.name }

func (b *barrierSource) Search(ctx context.Context, query string, _ int) []domain.SearchResult {
	b.wg.Done()
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return results(b.name, "https://"+b.name)
	case <-time.After(2 * time.Second):
		return nil
	case <-ctx.Done():
		return nil
	}
}

func TestDeepSearchQueriesSourcesConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	var specs []SourceSpec
	for _, name := range []string{"one", "two", "three"} {
		wg.Add(1)
		specs = append(specs, SourceSpec{Source: &barrierSource{name: name, wg: &wg}, Limit: SameLimit()})
	}

	agg := NewAggregator(specs[0].Source, specs, DefaultAggregatorOptions(), logger.Discard())
	resp := agg.DeepSearch(context.Background(), "q", domain.DeepSearchOptions{MaxResults: 3, EnableMultiSource: true})

	assert.Equal(t, []string{"https://one", "https://two", "https://three"}, urlsOf(resp.Results))
}

// brokenNameSource fails outside its Search call
type brokenNameSource struct{}

func (brokenNameSource) Name() string { panic("no name") }

func (brokenNameSource) Search(context.Context, string, int) []domain.SearchResult {
	return results("broken", "https://x")
}

func TestDeepSearchRecoversFromOrchestrationFailure(t *testing.T) {
	clock := newFakeClock()
	opts := DefaultAggregatorOptions()
	opts.Clock = clock.Now
	agg := NewAggregator(brokenNameSource{}, []SourceSpec{{Source: brokenNameSource{}}}, opts, logger.Discard())

	var resp *domain.SearchResponse
	require.NotPanics(t, func() {
		resp = agg.DeepSearch(context.Background(), "q", domain.DeepSearchOptions{EnableMultiSource: true})
	})
	require.NotNil(t, resp)
	assert.Equal(t, "q", resp.Query)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.TotalResults)
	assert.Equal(t, domain.DepthDeep, resp.SearchDepth)
}

func TestDeepSearchDoesNotCacheCancelledSearch(t *testing.T) {
	s := newTestSources()
	s.ddg.fallback = results(domain.SourceDuckDuckGo, "https://a")
	agg := newTestAggregator(s, newFakeClock(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	agg.DeepSearch(ctx, "q", domain.DefaultDeepSearchOptions())
	agg.DeepSearch(context.Background(), "q", domain.DefaultDeepSearchOptions())

	assert.Equal(t, 2, s.bing.callCount())
}

func TestQuickSearch(t *testing.T) {
	s := newTestSources()
	s.ddg.fallback = []domain.SearchResult{
		{URL: "https://1", Title: "unrelated"},
		{URL: "https://2", Title: "weather today"},
		{URL: "https://3"},
		{URL: "https://4"},
		{URL: "https://5"},
		{URL: "https://6"},
	}
	log := &memoryLog{}
	agg := newTestAggregator(s, newFakeClock(), log)

	resp := agg.QuickSearch(context.Background(), "weather today", 5)
	assert.Equal(t, domain.DepthSurface, resp.SearchDepth)
	assert.Equal(t, []string{"https://1", "https://2", "https://3", "https://4", "https://5"}, urlsOf(resp.Results), "quick results keep provider order")
	assert.Zero(t, s.bing.callCount())

	again := agg.QuickSearch(context.Background(), "weather today", 5)
	assert.Same(t, resp, again)
	assert.Equal(t, 1, s.ddg.callCount())

	agg.ClearCache()
	agg.QuickSearch(context.Background(), "weather today", 5)
	assert.Equal(t, 2, s.ddg.callCount())

	require.Len(t, log.entries, 3)
	assert.Equal(t, domain.SearchModeQuick, log.entries[0].Mode)
	assert.True(t, log.entries[1].CacheHit)
}

func TestQuickSearchRetriesAfterEmptyResponse(t *testing.T) {
	s := newTestSources()
	agg := newTestAggregator(s, newFakeClock(), nil)

	first := agg.QuickSearch(context.Background(), "go release", 5)
	assert.Zero(t, first.TotalResults)

	s.ddg.mu.Lock()
	s.ddg.fallback = results(domain.SourceDuckDuckGo, "https://go.dev/doc/devel/release")
	s.ddg.mu.Unlock()

	second := agg.QuickSearch(context.Background(), "go release", 5)
	assert.Equal(t, 1, second.TotalResults)
	assert.Equal(t, 2, s.ddg.callCount())

	agg.QuickSearch(context.Background(), "go release", 5)
	assert.Equal(t, 2, s.ddg.callCount(), "non-empty response is served from cache")
}

func TestSourceNames(t *testing.T) {
	s := newTestSources()
	agg := newTestAggregator(s, newFakeClock(), nil)

	assert.Equal(t, []string{
		domain.SourceDuckDuckGo, domain.SourceBing, domain.SourceStackOverflow, domain.SourceGitHub, domain.SourceReddit,
	}, agg.SourceNames())
}
