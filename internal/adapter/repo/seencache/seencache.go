// Package seencache fronts an ArticleRepository with a Redis seen-set so
// repeated feed polls skip the database for hashes already handled.
package seencache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cyberbrief/internal/domain"
)

const (
	keyPrefix  = "cyberbrief:seen:"
	defaultTTL = 14 * 24 * time.Hour
)

// Cache decorates a repository. Redis failures degrade to the wrapped
// repository rather than failing the pipeline.
type Cache struct {
	next domain.ArticleRepository
	rdb  redis.Cmdable
	ttl  time.Duration
}

// New wraps next with a Redis-backed seen-set.
func New(next domain.ArticleRepository, rdb redis.Cmdable) *Cache {
	return &Cache{next: next, rdb: rdb, ttl: defaultTTL}
}

// Exists consults Redis first and falls through to the repository on a
// cache miss or a Redis error.
func (c *Cache) Exists(ctx context.Context, contentHash string) (bool, error) {
	n, err := c.rdb.Exists(ctx, keyPrefix+contentHash).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("seen cache read failed, using repository",
			slog.Any("error", err))
	} else if n > 0 {
		return true, nil
	}

	seen, err := c.next.Exists(ctx, contentHash)
	if err != nil {
		return false, err
	}
	if seen {
		c.remember(ctx, contentHash)
	}
	return seen, nil
}

// Save persists the article and records its hash in the seen-set.
func (c *Cache) Save(ctx context.Context, a domain.Article) error {
	if err := c.next.Save(ctx, a); err != nil {
		return err
	}
	c.remember(ctx, a.ContentHash)
	return nil
}

// MarkPublished passes through to the repository.
func (c *Cache) MarkPublished(ctx context.Context, contentHash string) error {
	return c.next.MarkPublished(ctx, contentHash)
}

func (c *Cache) remember(ctx context.Context, contentHash string) {
	if err := c.rdb.Set(ctx, keyPrefix+contentHash, "1", c.ttl).Err(); err != nil {
		slog.Warn(fmt.Sprintf("op=seencache.remember: %v", err))
	}
}
