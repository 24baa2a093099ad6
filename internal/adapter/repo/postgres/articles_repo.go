package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"cyberbrief/internal/domain"
)

// ArticleRepo stores articles keyed by content hash.
type ArticleRepo struct{ Pool PgxPool }

// NewArticleRepo constructs an ArticleRepo with the given pool.
func NewArticleRepo(p PgxPool) *ArticleRepo { return &ArticleRepo{Pool: p} }

const schemaSQL = `CREATE TABLE IF NOT EXISTS articles (
	content_hash TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	url          TEXT NOT NULL,
	source       TEXT NOT NULL,
	published_at TIMESTAMPTZ,
	summary      TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL DEFAULT '',
	score        DOUBLE PRECISION NOT NULL DEFAULT 0,
	score_reason TEXT NOT NULL DEFAULT '',
	published    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the articles table when it does not exist yet.
func (r *ArticleRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("op=article.ensure_schema: %w", err)
	}
	return nil
}

// Exists reports whether an article with the given content hash has been
// seen before.
func (r *ArticleRepo) Exists(ctx context.Context, contentHash string) (bool, error) {
	q := `SELECT EXISTS(SELECT 1 FROM articles WHERE content_hash=$1)`
	var seen bool
	if err := r.Pool.QueryRow(ctx, q, contentHash).Scan(&seen); err != nil {
		return false, fmt.Errorf("op=article.exists: %w", err)
	}
	return seen, nil
}

// Save upserts an article. A re-run of the same feed updates the scored
// fields but never resets the published flag.
func (r *ArticleRepo) Save(ctx context.Context, a domain.Article) error {
	q := `INSERT INTO articles
		(content_hash, title, url, source, published_at, summary, content, score, score_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (content_hash) DO UPDATE SET
			summary=EXCLUDED.summary,
			content=EXCLUDED.content,
			score=EXCLUDED.score,
			score_reason=EXCLUDED.score_reason`
	_, err := r.Pool.Exec(ctx, q,
		a.ContentHash, a.Title, a.URL, a.Source, a.PublishedAt,
		a.Summary, a.Content, a.Score, a.ScoreReason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=article.save: %w", err)
	}
	return nil
}

// MarkPublished flags a stored article as delivered downstream.
func (r *ArticleRepo) MarkPublished(ctx context.Context, contentHash string) error {
	q := `UPDATE articles SET published=TRUE WHERE content_hash=$1`
	tag, err := r.Pool.Exec(ctx, q, contentHash)
	if err != nil {
		return fmt.Errorf("op=article.mark_published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=article.mark_published: %w", domain.ErrNotFound)
	}
	return nil
}

// Get loads one article by content hash.
func (r *ArticleRepo) Get(ctx context.Context, contentHash string) (domain.Article, error) {
	q := `SELECT content_hash, title, url, source, published_at, summary, content, score, score_reason
		FROM articles WHERE content_hash=$1`
	var a domain.Article
	err := r.Pool.QueryRow(ctx, q, contentHash).Scan(
		&a.ContentHash, &a.Title, &a.URL, &a.Source, &a.PublishedAt,
		&a.Summary, &a.Content, &a.Score, &a.ScoreReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Article{}, fmt.Errorf("op=article.get: %w", domain.ErrNotFound)
		}
		return domain.Article{}, fmt.Errorf("op=article.get: %w", err)
	}
	return a, nil
}
