package p2p

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "p2p"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of datagrams handed to the OS.
	DatagramsSent metrics.Counter
	// Number of payload bytes handed to the OS.
	BytesSent metrics.Counter
	// Number of sends retried after the socket reported would-block.
	SendRetries metrics.Counter
	// Number of sends abandoned because of a non-retryable error.
	SendErrors metrics.Counter
	// Number of events gossiped.
	EventsPropagated metrics.Counter
	// Number of events dropped because they could not be encoded.
	EncodeErrors metrics.Counter
	// Number of datagrams read from the socket.
	DatagramsReceived metrics.Counter
	// Number of payload bytes read from the socket.
	BytesReceived metrics.Counter
	// Number of inbound datagrams whose handler returned an error.
	HandlerErrors metrics.Counter
	// Number of blocks announced to the block pipeline.
	BlocksAnnounced metrics.Counter
	// Number of OS readiness waits that timed out.
	PollTimeouts metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	counter := func(name, help string) metrics.Counter {
		return prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      name,
			Help:      help,
		}, []string{})
	}

	return &Metrics{
		DatagramsSent:     counter("datagrams_sent", "Number of datagrams handed to the OS."),
		BytesSent:         counter("bytes_sent", "Number of payload bytes handed to the OS."),
		SendRetries:       counter("send_retries", "Number of sends retried after a would-block."),
		SendErrors:        counter("send_errors", "Number of sends abandoned on a non-retryable error."),
		EventsPropagated:  counter("events_propagated", "Number of events gossiped."),
		EncodeErrors:      counter("encode_errors", "Number of events dropped because they could not be encoded."),
		DatagramsReceived: counter("datagrams_received", "Number of datagrams read from the socket."),
		BytesReceived:     counter("bytes_received", "Number of payload bytes read from the socket."),
		HandlerErrors:     counter("handler_errors", "Number of inbound datagrams whose handler failed."),
		BlocksAnnounced:   counter("blocks_announced", "Number of blocks announced to the block pipeline."),
		PollTimeouts:      counter("poll_timeouts", "Number of readiness waits that timed out."),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		DatagramsSent:     discard.NewCounter(),
		BytesSent:         discard.NewCounter(),
		SendRetries:       discard.NewCounter(),
		SendErrors:        discard.NewCounter(),
		EventsPropagated:  discard.NewCounter(),
		EncodeErrors:      discard.NewCounter(),
		DatagramsReceived: discard.NewCounter(),
		BytesReceived:     discard.NewCounter(),
		HandlerErrors:     discard.NewCounter(),
		BlocksAnnounced:   discard.NewCounter(),
		PollTimeouts:      discard.NewCounter(),
	}
}
