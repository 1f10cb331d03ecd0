package serving

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcome labels.
const (
	outcomeOK          = "ok"
	outcomeClientError = "client_error"
	outcomeServerError = "server_error"
)

// Metrics holds the serving counters and histograms.
type Metrics struct {
	Requests    *prometheus.CounterVec // predictions by outcome
	Latency     prometheus.Histogram   // adapter latency in seconds
	CacheLookup *prometheus.CounterVec // artifact cache lookups by result
	Predictions prometheus.Histogram   // predicted age distribution
}

// NewMetrics registers the serving metrics with registerer. Tests pass a
// fresh prometheus.NewRegistry().
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abalone",
			Name:      "predict_requests_total",
			Help:      "Prediction requests by outcome",
		}, []string{"outcome"}),
		Latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "abalone",
			Name:      "predict_latency_seconds",
			Help:      "Prediction latency in seconds, from Received to Responded",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}),
		CacheLookup: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abalone",
			Name:      "artifact_cache_lookups_total",
			Help:      "Artifact cache lookups by result",
		}, []string{"result"}),
		Predictions: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "abalone",
			Name:      "predicted_age_years",
			Help:      "Distribution of predicted abalone age",
			Buckets:   prometheus.LinearBuckets(2, 2, 15),
		}),
	}
}
