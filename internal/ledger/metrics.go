package ledger

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "ledger"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of events admitted to the pending pool.
	EventsAdmitted metrics.Counter
	// Number of events dropped because they were seen before.
	DuplicateEvents metrics.Counter
	// Number of events that failed validation.
	InvalidEvents metrics.Counter
	// Number of events waiting for a block.
	PendingEvents metrics.Gauge
	// Number of blocks produced.
	BlocksProduced metrics.Counter
	// Number of events per produced block.
	BlockEvents metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		EventsAdmitted: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "events_admitted",
			Help:      "Number of events admitted to the pending pool.",
		}, []string{}),
		DuplicateEvents: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "duplicate_events",
			Help:      "Number of events dropped because they were seen before.",
		}, []string{}),
		InvalidEvents: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "invalid_events",
			Help:      "Number of events that failed validation.",
		}, []string{}),
		PendingEvents: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "pending_events",
			Help:      "Number of events waiting for a block.",
		}, []string{}),
		BlocksProduced: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "blocks_produced",
			Help:      "Number of blocks produced.",
		}, []string{}),
		BlockEvents: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "block_events",
			Help:      "Number of events per produced block.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 4, 8),
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		EventsAdmitted:  discard.NewCounter(),
		DuplicateEvents: discard.NewCounter(),
		InvalidEvents:   discard.NewCounter(),
		PendingEvents:   discard.NewGauge(),
		BlocksProduced:  discard.NewCounter(),
		BlockEvents:     discard.NewHistogram(),
	}
}
