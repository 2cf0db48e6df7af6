// Package dispatch fans resolved alerts out to their destinations: generic
// webhooks, Discord, GroupMe, and the RabbitMQ exchange.
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/eas"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/metrics"
)

// Sink delivers one resolved alert to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, alert *eas.Alert) error
}

// Dispatcher hands each alert to every sink in turn. Sinks fail
// independently; one unreachable webhook must not cost the others their
// copy. Each send gets its own deadline so a hung destination cannot stall
// the serial reader for long.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	log     *zap.Logger
}

func NewDispatcher(sinks []Sink, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{sinks: sinks, timeout: timeout, log: log}
}

// SinkCount returns how many destinations are configured.
func (d *Dispatcher) SinkCount() int {
	return len(d.sinks)
}

// Dispatch delivers alert to every sink. Failures are logged and counted,
// never returned; once an alert is decoded the only useful reaction to a
// bad destination is to keep going with the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *eas.Alert) {
	log := d.log.With(zap.String("alert_id", alert.ID))
	if alert.Header != nil {
		log = log.With(zap.String("event_code", alert.Header.EventCode))
	}

	for _, sink := range d.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := sink.Send(sendCtx, alert)
		cancel()

		if err != nil {
			metrics.SinkFailures.WithLabelValues(sink.Name()).Inc()
			log.Error("Failed to deliver alert",
				zap.String("sink", sink.Name()),
				zap.Error(err),
			)
			continue
		}
		metrics.SinkDeliveries.WithLabelValues(sink.Name()).Inc()
		log.Info("Alert delivered", zap.String("sink", sink.Name()))
	}
}
