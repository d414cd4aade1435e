package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every phrasematch collector. It is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{
		5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000, 30000,
	}

	QueriesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "phrasematch_queries_total",
			Help: "Total number of match queries by outcome",
		},
		[]string{"outcome"}, // ok, validation, not_ready, embedding
	)

	EmbedLatency = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phrasematch_embed_latency_ms",
			Help:    "Embedding provider latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"stage"}, // reference or query
	)

	MatchScore = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "phrasematch_best_score",
			Help:    "Cosine similarity of the winning reference phrase",
			Buckets: prometheus.LinearBuckets(-1, 0.1, 21),
		},
	)

	Ready = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "phrasematch_ready",
			Help: "1 when the reference cache is populated",
		},
	)

	EmbedCacheTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "phrasematch_embed_cache_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"}, // hit, miss, error
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Outcome labels for QueriesTotal.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeNotReady   = "not_ready"
	OutcomeEmbedding  = "embedding"
)
