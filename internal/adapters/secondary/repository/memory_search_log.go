package repository

import (
	"context"
	"sync"
	"time"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/core/ports"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

// DefaultSearchLogCapacity bounds the in-memory search log
const DefaultSearchLogCapacity = 500

// InMemorySearchLog implements ports.SearchLogPort with a bounded in-memory
// history. It is used when the database is disabled.
type InMemorySearchLog struct {
	entries  []domain.SearchLogEntry
	nextID   int64
	capacity int
	mutex    sync.RWMutex
	logger   logger.Logger
}

var _ ports.SearchLogPort = (*InMemorySearchLog)(nil)

// NewInMemorySearchLog creates a new InMemorySearchLog keeping at most capacity entries
func NewInMemorySearchLog(capacity int, log logger.Logger) *InMemorySearchLog {
	if capacity <= 0 {
		capacity = DefaultSearchLogCapacity
	}
	return &InMemorySearchLog{
		capacity: capacity,
		logger:   log,
	}
}

// Record stores an entry, dropping the oldest once full
func (r *InMemorySearchLog) Record(ctx context.Context, entry domain.SearchLogEntry) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.nextID++
	entry.ID = r.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	r.entries = append(r.entries, entry)
	if over := len(r.entries) - r.capacity; over > 0 {
		r.logger.Debug("Search log full, dropping oldest entries", "dropped", over)
		r.entries = append(r.entries[:0:0], r.entries[over:]...)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (r *InMemorySearchLog) Recent(ctx context.Context, limit int) ([]domain.SearchLogEntry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	n := min(limit, len(r.entries))
	if n < 0 {
		n = 0
	}
	recent := make([]domain.SearchLogEntry, 0, n)
	for i := len(r.entries) - 1; i >= 0 && len(recent) < n; i-- {
		recent = append(recent, r.entries[i])
	}
	return recent, nil
}
