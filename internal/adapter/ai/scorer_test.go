package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberbrief/internal/domain"
)

type modelCall struct {
	key   string
	model string
}

// fakeModel scripts responses per call and records the (credential,
// endpoint) pair of every attempt.
type fakeModel struct {
	key    string
	calls  []modelCall
	script func(n int, model string) (string, error)
}

func (f *fakeModel) Generate(_ context.Context, model, _ string) (string, error) {
	f.calls = append(f.calls, modelCall{key: f.key, model: model})
	return f.script(len(f.calls)-1, model)
}

func (f *fakeModel) SetCredential(key string) { f.key = key }

func quotaErr() error {
	return fmt.Errorf("status=429: %w", domain.ErrQuotaExhausted)
}

func testArticles(n int) []domain.Article {
	out := make([]domain.Article, n)
	for i := range out {
		out[i] = domain.Article{
			Title:       fmt.Sprintf("article %d", i),
			URL:         fmt.Sprintf("https://example.com/%d", i),
			Source:      "Test Source",
			Summary:     "summary",
			ContentHash: fmt.Sprintf("hash-%d", i),
		}
	}
	return out
}

func threeEndpoints() EndpointCatalog {
	return NewEndpointCatalog([]string{"e0", "e1", "e2"})
}

func TestAttemptOrderingUnderQuotaErrors(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(int, string) (string, error) { return "", quotaErr() }}
	s := NewScorer(fm, []string{"c0", "c1"}, WithEndpoints(threeEndpoints()))

	out := s.FilterAndScore(context.Background(), testArticles(1))

	want := []modelCall{
		{key: "c0", model: "e0"},
		{key: "c0", model: "e1"},
		{key: "c0", model: "e2"},
		{key: "c1", model: "e0"},
		{key: "c1", model: "e1"},
		{key: "c1", model: "e2"},
	}
	assert.Equal(t, want, fm.calls)
	// Exhaustion keeps the batch at the approval-floor sentinel.
	require.Len(t, out, 1)
	assert.InDelta(t, DefaultApprovedScore, out[0].Score, 0.001)
}

func TestRotationResetsToPreferredEndpoint(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(n int, _ string) (string, error) {
		if n < 3 {
			return "", quotaErr()
		}
		return `{"articles":[{"id":1,"score":8.0}]}`, nil
	}}
	s := NewScorer(fm, []string{"c0", "c1"}, WithEndpoints(threeEndpoints()))

	out := s.FilterAndScore(context.Background(), testArticles(1))

	require.Len(t, fm.calls, 4)
	// Regardless of which endpoint failed last under c0, the first
	// attempt under c1 uses the most preferred endpoint.
	assert.Equal(t, modelCall{key: "c1", model: "e0"}, fm.calls[3])
	require.Len(t, out, 1)
	assert.InDelta(t, 8.0, out[0].Score, 0.001)
}

func TestSingleCredentialNeverRotates(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(int, string) (string, error) { return "", quotaErr() }}
	s := NewScorer(fm, []string{"only"}, WithEndpoints(threeEndpoints()))

	s.FilterAndScore(context.Background(), testArticles(2))

	require.Len(t, fm.calls, 3)
	for _, c := range fm.calls {
		assert.Equal(t, "only", c.key)
	}
	assert.False(t, s.creds.Rotate())
	assert.Equal(t, 0, s.creds.Index())
}

func TestSentinelAppliedOnExhaustion(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(int, string) (string, error) { return "", quotaErr() }}
	s := NewScorer(fm, []string{"c0"}, WithEndpoints(threeEndpoints()))

	scores := s.ScoreAll(context.Background(), testArticles(3))

	require.Len(t, scores, 3)
	for hash, score := range scores {
		assert.InDelta(t, DefaultScore, score, 0.001, "hash %s", hash)
	}
}

func TestUnclassifiedErrorDefaultsImmediately(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(int, string) (string, error) {
		return "", errors.New("tls handshake failure")
	}}
	s := NewScorer(fm, []string{"c0", "c1"}, WithEndpoints(threeEndpoints()))

	out := s.FilterAndScore(context.Background(), testArticles(2))

	// No further attempts after an unclassified error.
	assert.Len(t, fm.calls, 1)
	require.Len(t, out, 2)
	for _, a := range out {
		assert.InDelta(t, DefaultApprovedScore, a.Score, 0.001)
	}
}

func TestRecoverableErrorsAdvanceAttempt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{name: "transport_empty", err: domain.ErrTransportEmpty},
		{name: "endpoint_unavailable", err: domain.ErrEndpointUnavailable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fm := &fakeModel{script: func(n int, _ string) (string, error) {
				if n == 0 {
					return "", fmt.Errorf("first: %w", tt.err)
				}
				return `{"articles":[{"id":1,"score":7.0}]}`, nil
			}}
			s := NewScorer(fm, []string{"c0"}, WithEndpoints(threeEndpoints()))

			out := s.FilterAndScore(context.Background(), testArticles(1))

			assert.Len(t, fm.calls, 2)
			assert.Equal(t, "e1", fm.calls[1].model)
			require.Len(t, out, 1)
			assert.InDelta(t, 7.0, out[0].Score, 0.001)
		})
	}
}

func TestZeroJudgmentsIsRecoverable(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(n int, _ string) (string, error) {
		if n == 0 {
			return `{"articles":[]}`, nil
		}
		return `{"articles":[{"id":1,"score":9.1}]}`, nil
	}}
	s := NewScorer(fm, []string{"c0"}, WithEndpoints(threeEndpoints()))

	out := s.FilterAndScore(context.Background(), testArticles(1))

	assert.Len(t, fm.calls, 2)
	require.Len(t, out, 1)
	assert.InDelta(t, 9.1, out[0].Score, 0.001)
}

func TestThresholdCorrectness(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(int, string) (string, error) {
		return `{"articles":[{"id":1,"score":6.0},{"id":2,"score":5.9},{"id":3,"score":9.5}]}`, nil
	}}
	s := NewScorer(fm, []string{"c0"}, WithEndpoints(threeEndpoints()))

	out := s.FilterAndScore(context.Background(), testArticles(3))

	// Approved iff parsed score >= threshold; 5.9 rejected by omission.
	require.Len(t, out, 2)
	assert.Equal(t, "hash-0", out[0].ContentHash)
	assert.InDelta(t, 6.0, out[0].Score, 0.001)
	assert.Equal(t, "hash-2", out[1].ContentHash)
	assert.InDelta(t, 9.5, out[1].Score, 0.001)
}

func TestScoreAllTotality(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(int, string) (string, error) {
		// Model only covers item 2; items 1 and 3 must still end scored.
		return `{"scores":[{"id":2,"score":7.7}]}`, nil
	}}
	s := NewScorer(fm, []string{"c0"}, WithEndpoints(threeEndpoints()))

	articles := testArticles(3)
	scores := s.ScoreAll(context.Background(), articles)

	require.Len(t, scores, 3)
	assert.InDelta(t, DefaultScore, scores["hash-0"], 0.001)
	assert.InDelta(t, 7.7, scores["hash-1"], 0.001)
	assert.InDelta(t, DefaultScore, scores["hash-2"], 0.001)
	assert.InDelta(t, 7.7, articles[1].Score, 0.001)
}

func TestOutOfRangeOrdinalDiscarded(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(int, string) (string, error) {
		return `{"scores":[{"id":41,"score":9.9},{"id":1,"score":6.5}]}`, nil
	}}
	s := NewScorer(fm, []string{"c0"}, WithEndpoints(threeEndpoints()))

	articles := testArticles(2)
	scores := s.ScoreAll(context.Background(), articles)

	require.Len(t, scores, 2)
	assert.InDelta(t, 6.5, scores["hash-0"], 0.001)
	assert.InDelta(t, DefaultScore, scores["hash-1"], 0.001)
}

func TestPassThroughWithoutCredentials(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(int, string) (string, error) {
		t.Fatal("model must not be called without credentials")
		return "", nil
	}}
	s := NewScorer(fm, nil, WithEndpoints(threeEndpoints()))

	assert.False(t, s.Enabled())

	articles := testArticles(2)
	out := s.FilterAndScore(context.Background(), articles)
	assert.Equal(t, articles, out)

	scores := s.ScoreAll(context.Background(), articles)
	require.Len(t, scores, 2)
	assert.InDelta(t, DefaultScore, scores["hash-0"], 0.001)

	assert.Zero(t, s.ScoreOne(context.Background(), &articles[0]))
	assert.Empty(t, fm.calls)
}

func TestScoreOneParsesReason(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(int, string) (string, error) {
		return `{"score": 8.4, "reason": "actively exploited zero-day"}`, nil
	}}
	s := NewScorer(fm, []string{"c0"}, WithEndpoints(threeEndpoints()))

	a := testArticles(1)[0]
	score := s.ScoreOne(context.Background(), &a)

	assert.InDelta(t, 8.4, score, 0.001)
	assert.InDelta(t, 8.4, a.Score, 0.001)
	assert.Equal(t, "actively exploited zero-day", a.ScoreReason)
}

func TestScoreOneDefaultsOnExhaustion(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(int, string) (string, error) { return "", quotaErr() }}
	s := NewScorer(fm, []string{"c0"}, WithEndpoints(threeEndpoints()))

	a := testArticles(1)[0]
	assert.InDelta(t, DefaultScore, s.ScoreOne(context.Background(), &a), 0.001)
}

func TestBatchBoundariesNeverSplit(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{script: func(int, string) (string, error) {
		return `{"scores":[{"id":1,"score":5.0}]}`, nil
	}}
	s := NewScorer(fm, []string{"c0"},
		WithEndpoints(threeEndpoints()), WithBatchSize(40))

	// 95 articles -> batches of 40, 40, 15; one request each.
	articles := testArticles(95)
	scores := s.ScoreAll(context.Background(), articles)

	assert.Len(t, fm.calls, 3)
	assert.Len(t, scores, 95)
}
