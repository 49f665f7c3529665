// Package observability exposes Prometheus metrics for the clustering
// pipeline and feed ingestion.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the hub.
type Metrics struct {
	ReportsIngested  *prometheus.CounterVec // labels: source, outcome={created,duplicate,invalid,error}
	ReportsProcessed *prometheus.CounterVec // labels: outcome={matched,created,skipped,error}
	EventsVerified   *prometheus.CounterVec // labels: reason={official_source,multiple_sources,manual_override}

	// Batch reclustering metrics.
	ReclusterRuns     prometheus.Counter
	ReclusterEvents   prometheus.Counter
	ReclusterDuration prometheus.Histogram
	ReclusterRunning  prometheus.Gauge

	// Feed fetch metrics.
	FeedFetchDuration *prometheus.HistogramVec // labels: feed={usgs,gdacs}
	FeedFetchErrors   *prometheus.CounterVec   // labels: feed={usgs,gdacs}
}

// NewMetrics creates and registers all hub metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterhub",
			Name:      "reports_ingested_total",
			Help:      "Reports received for ingestion by source and outcome.",
		}, []string{"source", "outcome"}),
		ReportsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterhub",
			Name:      "reports_processed_total",
			Help:      "Reports run through incremental clustering by outcome.",
		}, []string{"outcome"}),
		EventsVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterhub",
			Name:      "events_verified_total",
			Help:      "Event verification transitions by reason.",
		}, []string{"reason"}),
		ReclusterRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disasterhub",
			Name:      "recluster_runs_total",
			Help:      "Completed batch recluster passes.",
		}),
		ReclusterEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disasterhub",
			Name:      "recluster_events_total",
			Help:      "Events created by batch reclustering.",
		}),
		ReclusterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "disasterhub",
			Name:      "recluster_duration_seconds",
			Help:      "Duration of a complete batch recluster pass.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ReclusterRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "disasterhub",
			Name:      "recluster_running",
			Help:      "1 while a batch recluster pass is active, 0 otherwise.",
		}),
		FeedFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "disasterhub",
			Name:      "feed_fetch_duration_seconds",
			Help:      "External feed fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"feed"}),
		FeedFetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterhub",
			Name:      "feed_fetch_errors_total",
			Help:      "External feed fetch failures.",
		}, []string{"feed"}),
	}

	prometheus.MustRegister(
		m.ReportsIngested,
		m.ReportsProcessed,
		m.EventsVerified,
		m.ReclusterRuns,
		m.ReclusterEvents,
		m.ReclusterDuration,
		m.ReclusterRunning,
		m.FeedFetchDuration,
		m.FeedFetchErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsIngested:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disasterhub", Name: "reports_ingested_total"}, []string{"source", "outcome"}),
		ReportsProcessed:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disasterhub", Name: "reports_processed_total"}, []string{"outcome"}),
		EventsVerified:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disasterhub", Name: "events_verified_total"}, []string{"reason"}),
		ReclusterRuns:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "disasterhub", Name: "recluster_runs_total"}),
		ReclusterEvents:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "disasterhub", Name: "recluster_events_total"}),
		ReclusterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "disasterhub", Name: "recluster_duration_seconds"}),
		ReclusterRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "disasterhub", Name: "recluster_running"}),
		FeedFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "disasterhub", Name: "feed_fetch_duration_seconds"}, []string{"feed"}),
		FeedFetchErrors:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "disasterhub", Name: "feed_fetch_errors_total"}, []string{"feed"}),
	}
}
