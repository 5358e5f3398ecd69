package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/core/ports"
)

// SearchLogDatabase persists executed searches in SQLite
type SearchLogDatabase struct {
	db    *sql.DB
	mutex sync.RWMutex
}

var _ ports.SearchLogPort = (*SearchLogDatabase)(nil)

// NewSearchLogDatabase opens (creating if needed) the database at path
func NewSearchLogDatabase(path string) (*SearchLogDatabase, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open search log: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create search log schema: %w", err)
	}

	return &SearchLogDatabase{db: db}, nil
}

// createSchema creates the searches table if it doesn't exist
func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS searches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			mode TEXT NOT NULL,
			depth TEXT NOT NULL,
			result_count INTEGER NOT NULL DEFAULT 0,
			cache_hit INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at)`)
	return err
}

// Close closes the database connection
func (s *SearchLogDatabase) Close() error {
	return s.db.Close()
}

// Record implements ports.SearchLogPort
func (s *SearchLogDatabase) Record(ctx context.Context, entry domain.SearchLogEntry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO searches (query, mode, depth, result_count, cache_hit, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.Query,
		entry.Mode,
		string(entry.Depth),
		entry.ResultCount,
		entry.CacheHit,
		entry.Duration.Milliseconds(),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Recent implements ports.SearchLogPort
func (s *SearchLogDatabase) Recent(ctx context.Context, limit int) ([]domain.SearchLogEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, mode, depth, result_count, cache_hit, duration_ms, created_at
		FROM searches
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.SearchLogEntry{}
	for rows.Next() {
		var (
			entry      domain.SearchLogEntry
			depth      string
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&entry.ID, &entry.Query, &entry.Mode, &depth, &entry.ResultCount, &entry.CacheHit, &durationMS, &createdAt); err != nil {
			return nil, err
		}
		entry.Depth = domain.SearchDepth(depth)
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		if entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of search %d: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded searches
func (s *SearchLogDatabase) Count(ctx context.Context) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM searches`).Scan(&count)
	return count, err
}
