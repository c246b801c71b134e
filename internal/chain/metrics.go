package chain

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "chain"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Height of the last saved block.
	Height metrics.Gauge
	// Number of blocks saved.
	BlocksSaved metrics.Counter
	// Number of blocks that did not extend the stored chain.
	BlocksRejected metrics.Counter
	// Number of events in saved blocks.
	BlockEvents metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Height: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "height",
			Help:      "Height of the last saved block.",
		}, []string{}),
		BlocksSaved: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "blocks_saved",
			Help:      "Number of blocks saved.",
		}, []string{}),
		BlocksRejected: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "blocks_rejected",
			Help:      "Number of blocks that did not extend the stored chain.",
		}, []string{}),
		BlockEvents: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "block_events",
			Help:      "Number of events in saved blocks.",
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Height:         discard.NewGauge(),
		BlocksSaved:    discard.NewCounter(),
		BlocksRejected: discard.NewCounter(),
		BlockEvents:    discard.NewCounter(),
	}
}
