// Package domain holds the aggregator's entities and ports.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	// ErrTransportEmpty marks a call that returned no usable payload.
	ErrTransportEmpty = errors.New("empty response")
	// ErrEndpointUnavailable marks a model endpoint the provider does not
	// serve for the current credential (404 / not-found class).
	ErrEndpointUnavailable = errors.New("endpoint unavailable")
	// ErrQuotaExhausted marks a rate-limit or quota rejection (429 class).
	ErrQuotaExhausted = errors.New("quota exhausted")
	ErrSchemaInvalid  = errors.New("schema invalid")
	ErrInternal       = errors.New("internal error")
)

// Article is one normalized news item flowing through the pipeline.
// ContentHash is the stable identity (md5 of the URL) used for
// deduplication and publish tracking. Score and ScoreReason are filled
// by the scorer; Content by enrichment.
type Article struct {
	Title       string
	URL         string
	Source      string
	PublishedAt *time.Time
	Summary     string
	ContentHash string
	Content     string
	Score       float64
	ScoreReason string
}

// Preview returns up to n runes of the article content, falling back to
// the summary and then the title. Used when building scoring prompts.
func (a Article) Preview(n int) string {
	s := a.Content
	if s == "" {
		s = a.Summary
	}
	if s == "" {
		s = a.Title
	}
	rs := []rune(s)
	if len(rs) > n {
		return string(rs[:n])
	}
	return s
}

// Ports

// PageFetcher retrieves a page body. Implementations own their retry and
// backoff policy; callers never retry transport errors themselves.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Source produces normalized articles from one feed and can enrich an
// article with its full text. Enrich implementations may override the
// default extraction with source-specific selectors.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Article, error)
	Enrich(ctx context.Context, a *Article) error
}

// ModelClient submits a text prompt to one named model endpoint and
// returns the raw text response. The bound credential is swappable via
// SetCredential.
type ModelClient interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	SetCredential(key string)
}

// ArticleRepository is the persistent article store.
type ArticleRepository interface {
	Exists(ctx context.Context, contentHash string) (bool, error)
	Save(ctx context.Context, a Article) error
	MarkPublished(ctx context.Context, contentHash string) error
}

// Publisher delivers approved, scored articles downstream. Publish may
// block per item to honor outbound rate limits.
type Publisher interface {
	Publish(ctx context.Context, articles []Article) error
}
