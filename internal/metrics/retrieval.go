package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics. The "stage" label is "lexical" or "vector".
var (
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kensaku",
			Name:      "retrieval_stage_duration_seconds",
			Help:      "Retrieval stage duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"},
	)

	StageResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kensaku",
			Name:      "retrieval_stage_results",
			Help:      "Number of results returned by a retrieval stage",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"stage"},
	)

	StageFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kensaku",
			Name:      "retrieval_stage_failures_total",
			Help:      "Retrieval stage failures recovered by the orchestrator",
		},
		[]string{"stage"},
	)

	FusedResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kensaku",
			Name:      "retrieval_fused_results_total",
			Help:      "Fused results by contribution label",
		},
		[]string{"contribution"}, // "lexical_only" / "vector_only" / "both"
	)

	EmptyResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kensaku",
			Name:      "retrieval_empty_results_total",
			Help:      "Searches that returned no results",
		},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(StageResults)
	prometheus.MustRegister(StageFailuresTotal)
	prometheus.MustRegister(FusedResultsTotal)
	prometheus.MustRegister(EmptyResultsTotal)
	retrievalMetricsRegistered = true
}
