package ports

import (
	"context"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
)

// SearchSourcePort is a single external search provider.
//
// Search never fails: network, parse and status errors are logged by the
// adapter and surface only as an empty result slice. limit bounds the number
// of results returned.
type SearchSourcePort interface {
	// Name returns the source label attached to its results
	Name() string

	// Search runs query against the provider
	Search(ctx context.Context, query string, limit int) []domain.SearchResult
}

// EventSink delivers boundary events to one connected client.
// Implementations must be safe for concurrent use.
type EventSink interface {
	Emit(ctx context.Context, event string, payload any) error
}

// SearchLogPort persists a record of executed searches
type SearchLogPort interface {
	// Record stores one entry
	Record(ctx context.Context, entry domain.SearchLogEntry) error

	// Recent returns up to limit entries, newest first
	Recent(ctx context.Context, limit int) ([]domain.SearchLogEntry, error)
}
