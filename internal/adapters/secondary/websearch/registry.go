package websearch

import (
	"github.com/vibin/deepsearch-chat/config"
	"github.com/vibin/deepsearch-chat/internal/core/ports"
	"github.com/vibin/deepsearch-chat/internal/core/services"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

// fixedSourceLimit is how many results the structured API sources are asked for
const fixedSourceLimit = 10

// Sources builds the aggregator's source list from configuration, in fan-out
// order, and returns the primary engine alongside it. Disabled sources are
// left out; primary is nil when DuckDuckGo is disabled.
func Sources(cfg config.WebSearchConfig, log logger.Logger) (ports.SearchSourcePort, []services.SourceSpec, error) {
	newFetcher := func() *Fetcher {
		return NewFetcher(FetchOptions{
			UserAgent:         cfg.UserAgent,
			Timeout:           cfg.Timeout(),
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		})
	}
	src := cfg.Sources

	var primary ports.SearchSourcePort
	var specs []services.SourceSpec

	if src.DuckDuckGo.Enabled {
		ddg := NewDuckDuckGoAdapter(src.DuckDuckGo.BaseURL, newFetcher(), log)
		primary = ddg
		specs = append(specs, services.SourceSpec{Source: ddg, Limit: services.SameLimit()})
	}
	if src.Bing.Enabled {
		specs = append(specs, services.SourceSpec{
			Source: NewBingAdapter(src.Bing.BaseURL, newFetcher(), log),
			Limit:  services.HalfLimit(),
		})
	}
	if src.StackOverflow.Enabled {
		specs = append(specs, services.SourceSpec{
			Source: NewStackOverflowAdapter(src.StackOverflow.BaseURL, newFetcher(), log),
			Limit:  services.FixedLimit(fixedSourceLimit),
		})
	}
	if src.GitHub.Enabled {
		gh, err := NewGitHubAdapter(src.GitHub.BaseURL, src.GitHub.APIKey, newFetcher(), log)
		if err != nil {
			return nil, nil, err
		}
		specs = append(specs, services.SourceSpec{Source: gh, Limit: services.FixedLimit(fixedSourceLimit), Hidden: true})
	}
	if src.Reddit.Enabled {
		specs = append(specs, services.SourceSpec{
			Source: NewRedditAdapter(src.Reddit.BaseURL, newFetcher(), log),
			Limit:  services.FixedLimit(fixedSourceLimit),
			Hidden: true,
		})
	}
	if src.SerpAPI.Enabled && src.SerpAPI.APIKey != "" {
		specs = append(specs, services.SourceSpec{
			Source: NewSerpAPIAdapter(src.SerpAPI.APIKey, newFetcher(), log),
			Limit:  services.FixedLimit(fixedSourceLimit),
		})
	}
	if src.Brave.Enabled && src.Brave.APIKey != "" {
		specs = append(specs, services.SourceSpec{
			Source: NewBraveAdapter(src.Brave.BaseURL, src.Brave.APIKey, newFetcher(), log),
			Limit:  services.FixedLimit(fixedSourceLimit),
		})
	}

	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Source.Name())
	}
	log.Info("Search sources registered", "sources", names)
	return primary, specs, nil
}
