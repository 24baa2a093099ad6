package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cyberbrief/internal/adapter/observability"
	"cyberbrief/internal/domain"
)

// Sentinel outcomes applied when no real judgment could be obtained.
// Pure scoring defaults to mid-range; the combined filter+score path
// keeps the whole batch at the approval floor so nothing is lost.
const (
	DefaultScore         = 5.0
	DefaultApprovedScore = 6.0
	DefaultBatchSize     = 40
	DefaultThreshold     = 6.0
)

// Scorer drives batches through the attempt matrix: all endpoints are
// swept under the current credential before the next credential is
// burned, because a wrong or deprecated model name fails instantly
// while fresh credentials are scarce.
//
// The credential and endpoint pointers are instance-wide and mutated
// only by the attempt loop; Scorer is single-threaded by contract.
type Scorer struct {
	client    domain.ModelClient
	creds     *CredentialPool
	endpoints EndpointCatalog
	cleaner   *ResponseCleaner

	batchSize int
	threshold float64

	// currentModel tracks the endpoint the client is bound to so a
	// sweep only rebinds when the endpoint actually changes.
	currentModel string
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithBatchSize overrides the default batch size.
func WithBatchSize(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithThreshold overrides the default approval threshold.
func WithThreshold(t float64) Option {
	return func(s *Scorer) { s.threshold = t }
}

// WithEndpoints overrides the default endpoint catalog.
func WithEndpoints(c EndpointCatalog) Option {
	return func(s *Scorer) { s.endpoints = c }
}

// NewScorer builds a scorer over the given credentials. An empty key
// list is allowed and puts the scorer into pass-through mode.
func NewScorer(client domain.ModelClient, keys []string, opts ...Option) *Scorer {
	s := &Scorer{
		client:    client,
		creds:     NewCredentialPool(keys),
		endpoints: DefaultEndpoints(),
		cleaner:   NewResponseCleaner(),
		batchSize: DefaultBatchSize,
		threshold: DefaultThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	if !s.creds.Empty() {
		s.client.SetCredential(s.creds.Current())
		s.currentModel = s.endpoints.At(0)
	} else {
		slog.Warn("no model credentials found, scoring disabled")
	}
	return s
}

// Enabled reports whether scoring can run at all.
func (s *Scorer) Enabled() bool { return !s.creds.Empty() }

// FilterAndScore runs the combined filter+score variant: one model call
// per batch, returning only approved articles with scores assigned.
// Articles below the threshold are rejected by omission. When the
// attempt matrix is exhausted or a non-recoverable error occurs, the
// whole batch is kept at the approval-floor sentinel instead of being
// dropped. With no credentials the input is returned unchanged.
func (s *Scorer) FilterAndScore(ctx context.Context, articles []domain.Article) []domain.Article {
	if !s.Enabled() {
		return articles
	}

	approved := make([]domain.Article, 0, len(articles))
	for start := 0; start < len(articles); start += s.batchSize {
		end := start + s.batchSize
		if end > len(articles) {
			end = len(articles)
		}
		batch := articles[start:end]

		prompt := buildFilterPrompt(batch, s.threshold)
		ok := s.sweep(ctx, prompt, func(raw string) bool {
			judgments, err := s.parseJudgments(raw, "articles", len(batch))
			if err != nil || len(judgments) == 0 {
				return false
			}
			for _, j := range judgments {
				if j.Score < s.threshold {
					continue
				}
				a := batch[j.Ordinal-1]
				a.Score = j.Score
				observability.ScoreHistogram.Observe(j.Score)
				approved = append(approved, a)
			}
			return true
		})

		if !ok {
			// Degrade, never drop: the whole batch passes at the floor.
			observability.BatchesDefaultedTotal.Inc()
			slog.Warn("batch defaulted, keeping all articles at sentinel score",
				slog.Int("batch_size", len(batch)),
				slog.Float64("score", DefaultApprovedScore))
			for _, a := range batch {
				a.Score = DefaultApprovedScore
				approved = append(approved, a)
			}
		}
	}

	slog.Info("filter+score complete",
		slog.Int("approved", len(approved)),
		slog.Int("total", len(articles)))
	return approved
}

// ScoreAll runs the total pure-scoring variant: every article ends with
// a score, parsed or sentinel, keyed by content fingerprint. Articles
// are also mutated in place.
func (s *Scorer) ScoreAll(ctx context.Context, articles []domain.Article) map[string]float64 {
	scores := make(map[string]float64, len(articles))
	if !s.Enabled() || len(articles) == 0 {
		for _, a := range articles {
			scores[a.ContentHash] = DefaultScore
		}
		return scores
	}

	for start := 0; start < len(articles); start += s.batchSize {
		end := start + s.batchSize
		if end > len(articles) {
			end = len(articles)
		}
		batch := articles[start:end]

		prompt := buildScorePrompt(batch)
		ok := s.sweep(ctx, prompt, func(raw string) bool {
			judgments, err := s.parseJudgments(raw, "scores", len(batch))
			if err != nil || len(judgments) == 0 {
				return false
			}
			for _, j := range judgments {
				batch[j.Ordinal-1].Score = j.Score
				scores[batch[j.Ordinal-1].ContentHash] = j.Score
				observability.ScoreHistogram.Observe(j.Score)
			}
			// Scoring must be total: anything the model skipped gets
			// the sentinel filled in individually.
			for i := range batch {
				if _, have := scores[batch[i].ContentHash]; !have {
					batch[i].Score = DefaultScore
					scores[batch[i].ContentHash] = DefaultScore
				}
			}
			return true
		})

		if !ok {
			observability.BatchesDefaultedTotal.Inc()
			for i := range batch {
				batch[i].Score = DefaultScore
				scores[batch[i].ContentHash] = DefaultScore
			}
		}
	}

	slog.Info("batch scoring complete", slog.Int("scored", len(scores)))
	return scores
}

// ScoreOne scores a single article with the same attempt-matrix policy,
// storing the model's rationale on the article. Returns the sentinel
// default on exhaustion; with no credentials it returns 0 untouched.
func (s *Scorer) ScoreOne(ctx context.Context, a *domain.Article) float64 {
	if !s.Enabled() {
		return 0.0
	}

	prompt := buildSinglePrompt(*a)
	var score float64
	ok := s.sweep(ctx, prompt, func(raw string) bool {
		v, err := s.parseSingle(raw)
		if err != nil {
			return false
		}
		score = v.Score
		a.ScoreReason = v.Reason
		return true
	})
	if !ok {
		slog.Warn("all attempts failed for article, defaulting",
			slog.String("title", truncateRunes(a.Title, 50)),
			slog.Float64("score", DefaultScore))
		return DefaultScore
	}
	a.Score = score
	return score
}

// sweep walks the attempt matrix for one request. accept parses a raw
// response and reports whether it yielded usable judgments; a false
// return advances the attempt like any recoverable failure. sweep
// returns false when the caller must apply the default outcome, either
// because the matrix is exhausted or because an unclassified error made
// further attempts pointless.
func (s *Scorer) sweep(ctx context.Context, prompt string, accept func(raw string) bool) bool {
	start := time.Now()
	defer func() {
		observability.BatchScoreDuration.Observe(time.Since(start).Seconds())
	}()

	maxAttempts := s.creds.Len() * s.endpoints.Len()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		credIdx, epIdx := s.endpoints.attemptAt(attempt)
		model := s.endpoints.At(epIdx)

		// Switching model without switching credential is free; only
		// rebind when the endpoint actually differs.
		if model != s.currentModel {
			s.currentModel = model
			slog.Debug("trying model", slog.String("model", model))
		}

		raw, err := s.client.Generate(ctx, model, prompt)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTransportEmpty):
				observability.ScoringAttemptsTotal.WithLabelValues(observability.OutcomeTransport).Inc()
				slog.Warn("model returned no usable payload, trying next",
					slog.String("model", model))
				continue

			case errors.Is(err, domain.ErrEndpointUnavailable):
				observability.ScoringAttemptsTotal.WithLabelValues(observability.OutcomeNotFound).Inc()
				slog.Warn("model not found, skipping to next",
					slog.String("model", model))
				continue

			case errors.Is(err, domain.ErrQuotaExhausted):
				observability.ScoringAttemptsTotal.WithLabelValues(observability.OutcomeQuota).Inc()
				if epIdx < s.endpoints.Len()-1 {
					// Cheaper to sweep the remaining endpoints than to
					// burn another credential.
					continue
				}
				if credIdx < s.creds.Len()-1 && s.creds.Rotate() {
					observability.CredentialRotationsTotal.Inc()
					s.client.SetCredential(s.creds.Current())
					// A fresh credential has full quota: restart the
					// sweep at the most preferred endpoint.
					s.currentModel = s.endpoints.At(0)
					slog.Warn("all models exhausted on credential, rotated",
						slog.Int("credential", s.creds.Index()))
					continue
				}
				slog.Error("all credentials and models exhausted")
				return false

			default:
				observability.ScoringAttemptsTotal.WithLabelValues(observability.OutcomeOther).Inc()
				slog.Warn("scoring attempt failed, defaulting batch",
					slog.String("model", model), slog.Any("error", err))
				return false
			}
		}

		if accept(raw) {
			observability.ScoringAttemptsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
			return true
		}
		// Parsed nothing usable: recoverable, same as a transport miss.
		observability.ScoringAttemptsTotal.WithLabelValues(observability.OutcomeUnparseable).Inc()
		slog.Warn("response carried no usable judgments, trying next",
			slog.String("model", model))
	}
	return false
}
