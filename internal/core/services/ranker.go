package services

import (
	"math"
	"slices"
	"strings"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
)

// RankingWeights are the tunables of the linear relevance score. They are
// hand-picked, not measured, so they live in configuration.
type RankingWeights struct {
	TitleMatch       float64
	SnippetMatch     float64
	SourceBoost      map[string]float64
	RelevanceDivisor float64
	RelevanceCap     float64
}

// DefaultRankingWeights returns the stock weights
func DefaultRankingWeights() RankingWeights {
	return RankingWeights{
		TitleMatch:   10,
		SnippetMatch: 5,
		SourceBoost: map[string]float64{
			domain.SourceStackOverflow: 3,
			domain.SourceGitHub:        2,
		},
		RelevanceDivisor: 100,
		RelevanceCap:     5,
	}
}

// Ranker orders search results with a fixed heuristic
type Ranker struct {
	weights RankingWeights
}

// NewRanker creates a Ranker
func NewRanker(weights RankingWeights) *Ranker {
	if weights.RelevanceDivisor == 0 {
		weights.RelevanceDivisor = 1
	}
	return &Ranker{weights: weights}
}

// Score computes the relevance of one result for query
func (r *Ranker) Score(result domain.SearchResult, query string) float64 {
	q := strings.ToLower(query)
	score := 0.0

	if strings.Contains(strings.ToLower(result.Title), q) {
		score += r.weights.TitleMatch
	}
	if strings.Contains(strings.ToLower(result.Snippet), q) {
		score += r.weights.SnippetMatch
	}
	score += r.weights.SourceBoost[result.Source]

	// Provider scores (upvotes, stars) count for a little, capped.
	if result.Relevance != 0 {
		score += math.Min(result.Relevance/r.weights.RelevanceDivisor, r.weights.RelevanceCap)
	}
	return score
}

// Rank returns a new slice with each result's Relevance replaced by its score,
// sorted by descending score. Equal scores keep their input order.
func (r *Ranker) Rank(results []domain.SearchResult, query string) []domain.SearchResult {
	ranked := make([]domain.SearchResult, len(results))
	for i, result := range results {
		result.Relevance = r.Score(result, query)
		ranked[i] = result
	}

	slices.SortStableFunc(ranked, func(a, b domain.SearchResult) int {
		switch {
		case a.Relevance > b.Relevance:
			return -1
		case a.Relevance < b.Relevance:
			return 1
		}
		return 0
	})
	return ranked
}

// dedupeByURL keeps the first result seen for every URL
func dedupeByURL(results []domain.SearchResult) []domain.SearchResult {
	seen := make(map[string]struct{}, len(results))
	unique := make([]domain.SearchResult, 0, len(results))
	for _, result := range results {
		if _, ok := seen[result.URL]; ok {
			continue
		}
		seen[result.URL] = struct{}{}
		unique = append(unique, result)
	}
	return unique
}
