// Package metrics holds the Prometheus instruments shared across the
// decoder. Everything registers on the default registry; the status server
// exposes it on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "endec"

var (
	// SerialConnected is 1 while the serial session is open.
	SerialConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "serial_connected",
		Help:      "Whether the ENDEC serial device is currently open (1) or not (0).",
	})

	// SerialReconnects counts serial sessions that ended in an error and
	// forced a reopen.
	SerialReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "serial_reconnects_total",
		Help:      "Number of times the serial device was reopened after a failure.",
	})

	// BlocksAssembled counts alert blocks emitted by the frame assembler,
	// labeled by how the block was completed.
	BlocksAssembled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blocks_assembled_total",
		Help:      "Alert blocks extracted from the serial stream.",
	}, []string{"completion"})

	// AlertsDecoded counts resolved alerts, labeled by whether a structured
	// header was recovered.
	AlertsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_decoded_total",
		Help:      "Alerts resolved from assembled blocks.",
	}, []string{"kind"})

	// SinkDeliveries counts successful sink sends by sink name.
	SinkDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_deliveries_total",
		Help:      "Alerts delivered per sink.",
	}, []string{"sink"})

	// SinkFailures counts failed sink sends by sink name.
	SinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_failures_total",
		Help:      "Alert deliveries that failed per sink.",
	}, []string{"sink"})

	// PublishAttempts counts individual broker publish attempts by outcome.
	PublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_attempts_total",
		Help:      "RabbitMQ publish attempts by outcome.",
	}, []string{"outcome"})

	// Heartbeats counts health heartbeat publishes by result.
	Heartbeats = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "heartbeats_total",
		Help:      "Health heartbeat publishes by result.",
	}, []string{"result"})
)

// Label values used with the vectors above. Keeping them here avoids typo'd
// label cardinality.
const (
	CompletionMarker = "marker"
	CompletionFlush  = "flush"

	KindHeader = "header"
	KindPlain  = "plain"

	OutcomeDelivered  = "delivered"
	OutcomeUnroutable = "unroutable"
	OutcomeTransient  = "transient"

	ResultOK     = "ok"
	ResultFailed = "failed"
)
