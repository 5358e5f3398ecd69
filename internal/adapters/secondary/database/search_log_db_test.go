package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
)

func TestSearchLogDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "searches.db")
	db, err := NewSearchLogDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	for i, q := range []string{"first", "second", "third"} {
		require.NoError(t, db.Record(ctx, domain.SearchLogEntry{
			Query:       q,
			Mode:        domain.SearchModeDeep,
			Depth:       domain.DepthExpert,
			ResultCount: i + 1,
			CacheHit:    i == 1,
			Duration:    1500 * time.Millisecond,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	recent, err := db.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Query)
	assert.Equal(t, "second", recent[1].Query)
	assert.True(t, recent[1].CacheHit)
	assert.Equal(t, domain.DepthExpert, recent[0].Depth)
	assert.Equal(t, 3, recent[0].ResultCount)
	assert.Equal(t, 1500*time.Millisecond, recent[0].Duration)
	assert.True(t, base.Add(2*time.Minute).Equal(recent[0].CreatedAt))
	assert.Greater(t, recent[0].ID, recent[1].ID)
}

func TestSearchLogDatabaseReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searches.db")

	db, err := NewSearchLogDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Record(context.Background(), domain.SearchLogEntry{Query: "kept", Mode: domain.SearchModeQuick, Depth: domain.DepthSurface}))
	require.NoError(t, db.Close())

	db, err = NewSearchLogDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	recent, err := db.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "kept", recent[0].Query)
	assert.False(t, recent[0].CreatedAt.IsZero())
}

func TestSearchLogDatabaseEmpty(t *testing.T) {
	db, err := NewSearchLogDatabase(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer db.Close()

	recent, err := db.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, recent)
	assert.Empty(t, recent)
}
