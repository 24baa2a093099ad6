package feeds

import (
	"context"
	"crypto/md5" //nolint:gosec // fingerprint, not security
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/mmcdole/gofeed"

	"cyberbrief/internal/domain"
)

const summaryFromContentRunes = 500

// rssSource collects articles from one RSS/Atom feed. Enrichment uses
// the source's extractor, selected by source identity.
type rssSource struct {
	name    string
	feedURL string
	fetcher domain.PageFetcher
	parser  *gofeed.Parser
	extract extractorFunc
}

func newRSSSource(name, feedURL string, fetcher domain.PageFetcher, extract extractorFunc) *rssSource {
	return &rssSource{
		name:    name,
		feedURL: feedURL,
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		extract: extract,
	}
}

func (s *rssSource) Name() string { return s.name }

// Fetch downloads and parses the feed. Broken entries are skipped, not
// fatal; a broken feed fails the source but never the run.
func (s *rssSource) Fetch(ctx context.Context) ([]domain.Article, error) {
	body, err := s.fetcher.Fetch(ctx, s.feedURL)
	if err != nil {
		return nil, fmt.Errorf("op=feeds.fetch: source=%s: %w", s.name, err)
	}

	feed, err := s.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("op=feeds.parse: source=%s: %w", s.name, err)
	}

	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			slog.Debug("skipping feed entry without title or link",
				slog.String("source", s.name))
			continue
		}

		articles = append(articles, domain.Article{
			Title:       item.Title,
			URL:         item.Link,
			Source:      s.name,
			PublishedAt: item.PublishedParsed,
			Summary:     item.Description,
			ContentHash: Fingerprint(item.Link),
		})
	}
	return articles, nil
}

// Enrich fetches the article page and fills Content with the extracted
// full text. An empty extraction leaves the article as-is; the summary
// still carries it through scoring and publishing.
func (s *rssSource) Enrich(ctx context.Context, a *domain.Article) error {
	html, err := s.fetcher.Fetch(ctx, a.URL)
	if err != nil {
		return fmt.Errorf("op=feeds.enrich: url=%s: %w", a.URL, err)
	}

	text, err := s.extract(html)
	if err != nil {
		return fmt.Errorf("op=feeds.enrich: url=%s: %w", a.URL, err)
	}
	if text == "" {
		return nil
	}

	a.Content = text
	if a.Summary == "" {
		a.Summary = a.Preview(summaryFromContentRunes) + "..."
	}
	return nil
}

// Fingerprint returns the stable content hash for a URL.
func Fingerprint(url string) string {
	sum := md5.Sum([]byte(url)) //nolint:gosec // dedup key only
	return hex.EncodeToString(sum[:])
}
