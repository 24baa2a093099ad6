package seencache

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberbrief/internal/adapter/repo/memory"
	"cyberbrief/internal/domain"
)

func newTestCache(t *testing.T) (*Cache, *memory.Repo) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := memory.NewRepo()
	return New(repo, rdb), repo
}

func TestSaveRecordsSeenHash(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	a := domain.Article{ContentHash: "abc", Title: "t", URL: "https://a"}
	require.NoError(t, cache.Save(ctx, a))

	// Visible through the cache and through the wrapped repository.
	seen, err := cache.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = repo.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestExistsBackfillsCacheFromRepository(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	// Saved directly to the repository, bypassing the cache.
	require.NoError(t, repo.Save(ctx, domain.Article{ContentHash: "xyz"}))

	seen, err := cache.Exists(ctx, "xyz")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = cache.Exists(ctx, "never-seen")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMarkPublishedPassesThrough(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, domain.Article{ContentHash: "abc"}))
	require.NoError(t, cache.MarkPublished(ctx, "abc"))

	err := cache.MarkPublished(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
