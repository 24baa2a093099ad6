// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"cyberbrief/internal/adapter/observability"
	"cyberbrief/internal/domain"
)

// ArticleScorer filters a batch of articles down to the ones worth
// publishing, scoring them along the way.
type ArticleScorer interface {
	Enabled() bool
	FilterAndScore(ctx context.Context, articles []domain.Article) []domain.Article
}

// AggregateService runs one aggregation pass: collect, dedupe, score,
// enrich, persist, publish.
type AggregateService struct {
	Sources   []domain.Source
	Repo      domain.ArticleRepository
	Scorer    ArticleScorer
	Publisher domain.Publisher
}

// NewAggregateService constructs an AggregateService with its dependencies.
func NewAggregateService(sources []domain.Source, repo domain.ArticleRepository, scorer ArticleScorer, pub domain.Publisher) AggregateService {
	return AggregateService{Sources: sources, Repo: repo, Scorer: scorer, Publisher: pub}
}

// RunSummary counts what one aggregation pass did.
type RunSummary struct {
	Collected int
	New       int
	Approved  int
	Published int
}

// Run executes one full pass. Individual source, enrichment, and
// publish failures are logged and skipped; Run fails only when no
// source could be collected at all.
func (s AggregateService) Run(ctx context.Context) (RunSummary, error) {
	var sum RunSummary

	collected, err := s.collect(ctx)
	if err != nil {
		return sum, err
	}
	sum.Collected = len(collected)

	fresh := s.dedupe(ctx, collected)
	sum.New = len(fresh)
	if len(fresh) == 0 {
		slog.Info("no new articles this pass")
		return sum, nil
	}

	approved := s.Scorer.FilterAndScore(ctx, fresh)
	sum.Approved = len(approved)
	observability.ArticlesApprovedTotal.Add(float64(len(approved)))

	s.enrich(ctx, approved)

	// Everything scored is saved, approved or not, so the next pass
	// skips it. Approved copies carry the enriched content.
	approvedHashes := make(map[string]bool, len(approved))
	for _, a := range approved {
		approvedHashes[a.ContentHash] = true
		s.save(ctx, a)
	}
	for _, a := range fresh {
		if !approvedHashes[a.ContentHash] {
			s.save(ctx, a)
		}
	}

	sum.Published = s.publish(ctx, approved)

	slog.Info("aggregation pass complete",
		slog.Int("collected", sum.Collected),
		slog.Int("new", sum.New),
		slog.Int("approved", sum.Approved),
		slog.Int("published", sum.Published))
	return sum, nil
}

func (s AggregateService) save(ctx context.Context, a domain.Article) {
	if err := s.Repo.Save(ctx, a); err != nil {
		slog.Error("save failed", slog.String("url", a.URL), slog.Any("error", err))
	}
}

// collect fetches every source, tolerating per-source failures.
func (s AggregateService) collect(ctx context.Context) ([]domain.Article, error) {
	var all []domain.Article
	okSources := 0
	for _, src := range s.Sources {
		articles, err := src.Fetch(ctx)
		if err != nil {
			slog.Error("source fetch failed",
				slog.String("source", src.Name()), slog.Any("error", err))
			continue
		}
		okSources++
		observability.ArticlesCollectedTotal.WithLabelValues(src.Name()).Add(float64(len(articles)))
		slog.Info("source collected",
			slog.String("source", src.Name()), slog.Int("articles", len(articles)))
		all = append(all, articles...)
	}
	if okSources == 0 && len(s.Sources) > 0 {
		return nil, fmt.Errorf("op=aggregate.collect: all %d sources failed", len(s.Sources))
	}
	return all, nil
}

// dedupe drops articles already stored and duplicates within the pass.
// A repository read failure counts the article as new rather than
// silently losing it.
func (s AggregateService) dedupe(ctx context.Context, articles []domain.Article) []domain.Article {
	seen := make(map[string]bool, len(articles))
	var fresh []domain.Article
	for _, a := range articles {
		if seen[a.ContentHash] {
			continue
		}
		seen[a.ContentHash] = true

		exists, err := s.Repo.Exists(ctx, a.ContentHash)
		if err != nil {
			slog.Warn("dedupe lookup failed, treating as new",
				slog.String("url", a.URL), slog.Any("error", err))
		}
		if exists {
			continue
		}
		fresh = append(fresh, a)
	}
	return fresh
}

// enrich fills full article text for approved items that only carry
// their feed summary. A failed enrichment publishes the summary.
func (s AggregateService) enrich(ctx context.Context, articles []domain.Article) {
	bySource := make(map[string]domain.Source, len(s.Sources))
	for _, src := range s.Sources {
		bySource[src.Name()] = src
	}

	for i := range articles {
		if articles[i].Content != "" {
			continue
		}
		src, ok := bySource[articles[i].Source]
		if !ok {
			continue
		}
		if err := src.Enrich(ctx, &articles[i]); err != nil {
			slog.Warn("enrichment failed, keeping summary",
				slog.String("url", articles[i].URL), slog.Any("error", err))
		}
	}
}

// publish delivers approved articles one at a time so each can be
// marked published independently.
func (s AggregateService) publish(ctx context.Context, articles []domain.Article) int {
	published := 0
	for _, a := range articles {
		if err := s.Publisher.Publish(ctx, []domain.Article{a}); err != nil {
			slog.Error("publish failed",
				slog.String("url", a.URL), slog.Any("error", err))
			continue
		}
		published++
		if err := s.Repo.MarkPublished(ctx, a.ContentHash); err != nil {
			slog.Warn("mark published failed",
				slog.String("url", a.URL), slog.Any("error", err))
		}
	}
	return published
}
