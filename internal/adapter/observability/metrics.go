package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ArticlesCollectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_collected_total",
			Help: "Total number of articles collected by source",
		},
		[]string{"source"},
	)
	ArticlesApprovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "articles_approved_total",
			Help: "Total number of articles approved by the scorer",
		},
	)
	ArticlesPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "articles_published_total",
			Help: "Total number of articles published downstream",
		},
	)

	ScoringAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_attempts_total",
			Help: "Total number of model scoring attempts by outcome class",
		},
		[]string{"outcome"},
	)
	CredentialRotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credential_rotations_total",
			Help: "Total number of credential rotations",
		},
	)
	BatchesDefaultedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "score_batches_defaulted_total",
			Help: "Total number of batches resolved with the sentinel score",
		},
	)
	BatchScoreDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "score_batch_duration_seconds",
			Help:    "Wall time to resolve one scoring batch, attempts included",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	ScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "article_score",
			Help:    "Distribution of article scores ([0,10])",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)
)

// Attempt outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeTransport   = "transport_empty"
	OutcomeNotFound    = "endpoint_unavailable"
	OutcomeQuota       = "quota_exhausted"
	OutcomeUnparseable = "unparseable"
	OutcomeOther       = "other"
)

func InitMetrics() {
	prometheus.MustRegister(ArticlesCollectedTotal)
	prometheus.MustRegister(ArticlesApprovedTotal)
	prometheus.MustRegister(ArticlesPublishedTotal)
	prometheus.MustRegister(ScoringAttemptsTotal)
	prometheus.MustRegister(CredentialRotationsTotal)
	prometheus.MustRegister(BatchesDefaultedTotal)
	prometheus.MustRegister(BatchScoreDuration)
	prometheus.MustRegister(ScoreHistogram)
}
