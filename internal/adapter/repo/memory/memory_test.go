package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberbrief/internal/domain"
)

func TestRepoRoundTrip(t *testing.T) {
	t.Parallel()

	repo := NewRepo()
	ctx := context.Background()

	seen, err := repo.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, repo.Save(ctx, domain.Article{ContentHash: "abc"}))

	seen, err = repo.Exists(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, repo.MarkPublished(ctx, "abc"))
	assert.ErrorIs(t, repo.MarkPublished(ctx, "missing"), domain.ErrNotFound)
}
