// Package monitor implements the watchdog side of the heartbeat contract:
// it consumes health check messages from RabbitMQ and raises a Discord
// alert when the decoder goes silent.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/health"
)

// Notifier delivers a watchdog alert to a human-facing channel.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Config carries the watchdog thresholds.
type Config struct {
	// RoutingKey filters deliveries; beats with any other key are acked
	// and ignored.
	RoutingKey string
	// CheckInterval is how often the silence check runs.
	CheckInterval time.Duration
	// Timeout is the silence that triggers an alert. It should comfortably
	// exceed the sender's heartbeat interval.
	Timeout time.Duration
	// Location renders timestamps in alerts and logs.
	Location *time.Location
}

func (c Config) withDefaults() Config {
	if c.CheckInterval <= 0 {
		c.CheckInterval = 5 * time.Minute
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// Watchdog tracks the last heartbeat seen and alerts once per silence.
// After an alert fires the timer is cleared, so the next alert requires a
// fresh heartbeat followed by fresh silence; a dead decoder produces one
// page, not one per check.
type Watchdog struct {
	cfg      Config
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastBeat time.Time
}

func NewWatchdog(cfg Config, notifier Notifier, log *zap.Logger) *Watchdog {
	return &Watchdog{
		cfg:      cfg.withDefaults(),
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// HandleDelivery records one heartbeat. A decode failure is returned so the
// consumer rejects the message.
func (w *Watchdog) HandleDelivery(msg amqp.Delivery) error {
	if w.cfg.RoutingKey != "" && msg.RoutingKey != w.cfg.RoutingKey {
		w.log.Debug("Ignoring message with foreign routing key",
			zap.String("routing_key", msg.RoutingKey),
		)
		return nil
	}

	var beat health.Heartbeat
	if err := json.Unmarshal(msg.Body, &beat); err != nil {
		return fmt.Errorf("failed to decode health check message: %w", err)
	}

	received := w.now()
	w.mu.Lock()
	w.lastBeat = received
	w.mu.Unlock()

	w.log.Info("Received health check",
		zap.String("source", beat.SourceApplication),
		zap.String("status", beat.Status),
		zap.String("received_at", received.In(w.cfg.Location).Format("2006-01-02 15:04:05 MST")),
	)
	return nil
}

// RunChecks evaluates the silence threshold on every interval until ctx
// ends.
func (w *Watchdog) RunChecks(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Watchdog stopped")
			return nil
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watchdog) check(ctx context.Context) {
	now := w.now()

	w.mu.Lock()
	last := w.lastBeat
	w.mu.Unlock()

	if last.IsZero() {
		w.log.Warn("No health check messages received yet, waiting for first ping")
		return
	}

	silence := now.Sub(last)
	w.log.Info("Checking heartbeat age",
		zap.Duration("silence", silence),
		zap.Duration("threshold", w.cfg.Timeout),
	)
	if silence <= w.cfg.Timeout {
		return
	}

	w.log.Warn("Health check timeout detected",
		zap.Duration("silence", silence),
	)
	if err := w.notifier.Notify(ctx, w.alertMessage(last, silence)); err != nil {
		w.log.Error("Failed to send watchdog alert", zap.Error(err))
	}

	// Require a fresh heartbeat before this silence can alert again.
	w.mu.Lock()
	w.lastBeat = time.Time{}
	w.mu.Unlock()
}

func (w *Watchdog) alertMessage(last time.Time, silence time.Duration) string {
	return fmt.Sprintf(
		"🚨 **WBOR ENDEC Health Check Alert** 🚨\n"+
			"No health check received from `wbor-endec` for %d seconds\n"+
			"Last health check: `%s`\n"+
			"Threshold: `%d` seconds\n\n"+
			"Please investigate that the ENDEC system is powered on and the "+
			"serial connection is working properly.",
		int(silence.Seconds()),
		last.In(w.cfg.Location).Format("2006-01-02 15:04:05 MST"),
		int(w.cfg.Timeout.Seconds()),
	)
}

// LastHeartbeat returns the receive time of the most recent beat, zero if
// none has arrived since startup or the last alert.
func (w *Watchdog) LastHeartbeat() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastBeat
}
