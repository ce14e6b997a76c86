package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	StoreDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "visiolingua",
			Name:      "store_degraded_total",
			Help:      "Candidate store reads answered with an empty result after a failure",
		},
		[]string{"op"},
	)

	QueryEmbeddingDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "visiolingua",
			Name:      "query_embedding_degraded_total",
			Help:      "Queries answered with an empty result because the query embedding failed",
		},
		[]string{"path"},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "visiolingua",
			Name:      "retrieval_duration_seconds",
			Help:      "Time from candidate retrieval start to metrics computation",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"path"},
	)

	RetrievalResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "visiolingua",
			Name:      "retrieval_results",
			Help:      "Number of results returned by a ranking pass",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		},
		[]string{"path"},
	)

	GroundingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "visiolingua",
			Name:      "grounding_decisions_total",
			Help:      "Grounding decisions by the selection step that produced them",
		},
		[]string{"source"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(StoreDegradedTotal)
	prometheus.MustRegister(QueryEmbeddingDegradedTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalResults)
	prometheus.MustRegister(GroundingDecisionsTotal)
	retrievalMetricsRegistered = true
}
