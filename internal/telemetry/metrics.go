package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the document AI gateway.
type Metrics struct {
	ResultsTotal        *prometheus.CounterVec
	CacheLookupsTotal   *prometheus.CounterVec
	RemoteFailuresTotal *prometheus.CounterVec
	RemoteDurationMs    *prometheus.HistogramVec
	GuardBlocksTotal    *prometheus.CounterVec
	ReviewTotal         *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ResultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docai_results_total",
			Help: "Results returned, by operation and provenance.",
		}, []string{"operation", "provenance"}),

		CacheLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docai_cache_lookups_total",
			Help: "Result cache lookups, by operation and outcome.",
		}, []string{"operation", "outcome"}),

		RemoteFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docai_remote_failures_total",
			Help: "Remote model failures, by operation and category.",
		}, []string{"operation", "category"}),

		RemoteDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docai_remote_duration_ms",
			Help:    "Remote model call duration in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"operation", "outcome"}),

		GuardBlocksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docai_guard_blocks_total",
			Help: "Remote calls skipped because the input carried credentials.",
		}, []string{"operation"}),

		ReviewTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docai_review_total",
			Help: "Review decisions for analysed documents.",
		}, []string{"status"}),
	}
}

// RecordResult counts a result leaving the optimizer.
func (m *Metrics) RecordResult(operation, provenance string) {
	m.ResultsTotal.WithLabelValues(operation, provenance).Inc()
}

// RecordCacheLookup counts a hit or a miss.
func (m *Metrics) RecordCacheLookup(operation string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordRemote observes one remote call. An empty category means success.
func (m *Metrics) RecordRemote(operation, category string, d time.Duration) {
	outcome := "ok"
	if category != "" {
		outcome = "error"
		m.RemoteFailuresTotal.WithLabelValues(operation, category).Inc()
	}
	m.RemoteDurationMs.WithLabelValues(operation, outcome).Observe(float64(d.Microseconds()) / 1000)
}

func (m *Metrics) RecordGuardBlock(operation string) {
	m.GuardBlocksTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordReview(status string) {
	m.ReviewTotal.WithLabelValues(status).Inc()
}
