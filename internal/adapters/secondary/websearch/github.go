package websearch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gogithub "github.com/google/go-github/v69/github"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

// GitHubAdapter searches repositories through the GitHub REST API, most
// starred first
type GitHubAdapter struct {
	client  *gogithub.Client
	fetcher *Fetcher
	logger  logger.Logger
}

// NewGitHubAdapter creates a new GitHubAdapter. An empty baseURL keeps the
// public API; token is optional and only raises the rate limit.
func NewGitHubAdapter(baseURL, token string, fetcher *Fetcher, log logger.Logger) (*GitHubAdapter, error) {
	client := gogithub.NewClient(fetcher.Client())
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = u
	}
	if fetcher.userAgent != "" {
		client.UserAgent = fetcher.userAgent
	}

	return &GitHubAdapter{
		client:  client,
		fetcher: fetcher,
		logger:  log.WithField("source", domain.SourceGitHub),
	}, nil
}

// Name implements ports.SearchSourcePort
func (a *GitHubAdapter) Name() string { return domain.SourceGitHub }

// Search implements ports.SearchSourcePort
func (a *GitHubAdapter) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	if err := a.fetcher.Wait(ctx); err != nil {
		logFailure(a.logger, a.Name(), query, err)
		return nil
	}

	repos, resp, err := a.client.Search.Repositories(ctx, query, &gogithub.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: gogithub.ListOptions{PerPage: limit},
	})
	if err != nil {
		logFailure(a.logger, a.Name(), query, err)
		return nil
	}
	if resp != nil && resp.Rate.Limit > 0 && resp.Rate.Remaining < 5 {
		a.logger.Warn("GitHub rate limit low", "remaining", resp.Rate.Remaining, "reset", resp.Rate.Reset.Time)
	}

	var results []domain.SearchResult
	for _, repo := range repos.Repositories {
		if len(results) >= limit {
			break
		}
		description := repo.GetDescription()
		if description == "" {
			description = "GitHub repository"
		}
		results = append(results, domain.SearchResult{
			Title:     repo.GetFullName(),
			URL:       repo.GetHTMLURL(),
			Snippet:   CleanText(description),
			Source:    domain.SourceGitHub,
			Relevance: float64(repo.GetStargazersCount()),
		})
	}
	return results
}
