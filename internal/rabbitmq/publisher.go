// Package rabbitmq provides the broker clients: a confirm-mode publisher
// with bounded retries for alerts and heartbeats, and a reconnecting
// consumer used by the health watchdog.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/metrics"
)

// ErrUnroutable reports that the broker took the publish but returned the
// message: the exchange has no binding for the routing key. Retrying cannot
// help; the topology needs fixing.
var ErrUnroutable = errors.New("rabbitmq: message unroutable")

// Outcome classifies a single publish attempt.
type Outcome int

const (
	OutcomeDelivered Outcome = iota
	OutcomeUnroutable
	OutcomeTransient
)

// Config carries publisher settings for one exchange.
type Config struct {
	URL            string
	Exchange       string
	ConnectionName string

	// MaxAttempts bounds delivery tries per Publish call.
	MaxAttempts int
	// RetryDelay is the linear backoff unit between attempts.
	RetryDelay time.Duration
	// ConfirmTimeout bounds the wait for a broker confirmation.
	ConfirmTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 5 * time.Second
	}
	return c
}

// Publisher owns one connection and one confirm-mode channel to a single
// exchange. Both are established lazily on first use and re-established
// whenever a publish finds either closed. Publishes are mandatory, so the
// broker returns messages it cannot route instead of silently dropping
// them.
//
// Publish is meant to be called from one goroutine at a time; give each
// producer its own Publisher. Healthy and Close are safe from any
// goroutine.
type Publisher struct {
	cfg  Config
	log  *zap.Logger
	dial func() (amqpConn, error)

	mu      sync.RWMutex
	conn    amqpConn
	channel amqpChan
	returns chan amqp.Return
}

func NewPublisher(cfg Config, log *zap.Logger) *Publisher {
	cfg = cfg.withDefaults()
	return &Publisher{
		cfg: cfg,
		log: log,
		dial: func() (amqpConn, error) {
			conn, err := dialAMQP(cfg.URL, cfg.ConnectionName)
			if err != nil {
				return nil, err
			}
			return realConn{conn}, nil
		},
	}
}

// Publish serializes payload as JSON and delivers it to the exchange under
// routingKey, retrying transient failures with linearly increasing delay.
// An unroutable message fails immediately with ErrUnroutable. The caller
// decides whether a failed publish is fatal.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if !sleepContext(ctx, time.Duration(attempt-1)*p.cfg.RetryDelay) {
				return ctx.Err()
			}
		}

		outcome, err := p.publishOnce(ctx, routingKey, body)
		switch outcome {
		case OutcomeDelivered:
			metrics.PublishAttempts.WithLabelValues(metrics.OutcomeDelivered).Inc()
			if attempt > 1 {
				p.log.Info("Publish succeeded after retry",
					zap.String("routing_key", routingKey),
					zap.Int("attempt", attempt),
				)
			}
			return nil
		case OutcomeUnroutable:
			metrics.PublishAttempts.WithLabelValues(metrics.OutcomeUnroutable).Inc()
			p.log.Error("Message unroutable, not retrying",
				zap.String("exchange", p.cfg.Exchange),
				zap.String("routing_key", routingKey),
				zap.Error(err),
			)
			return ErrUnroutable
		default:
			metrics.PublishAttempts.WithLabelValues(metrics.OutcomeTransient).Inc()
			lastErr = err
			p.log.Warn("Publish attempt failed",
				zap.String("routing_key", routingKey),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.cfg.MaxAttempts),
				zap.Error(err),
			)
		}
	}

	return fmt.Errorf("publish to %s after %d attempts: %w", routingKey, p.cfg.MaxAttempts, lastErr)
}

func (p *Publisher) publishOnce(ctx context.Context, routingKey string, body []byte) (Outcome, error) {
	ch, returns, err := p.ensure()
	if err != nil {
		return OutcomeTransient, err
	}

	p.drainReturns(returns)

	pubCtx, cancel := context.WithTimeout(ctx, p.cfg.ConfirmTimeout)
	defer cancel()

	conf, err := ch.PublishWithDeferredConfirm(pubCtx, p.cfg.Exchange, routingKey, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		p.teardown()
		return OutcomeTransient, fmt.Errorf("publish: %w", err)
	}

	select {
	case <-conf.Done():
	case <-pubCtx.Done():
		p.teardown()
		return OutcomeTransient, fmt.Errorf("await confirm: %w", pubCtx.Err())
	}

	// For an unroutable message the broker sends basic.return before the
	// confirm, and the client delivers frames in order. Once the
	// confirmation has fired, any return for this publish is already
	// buffered.
	select {
	case ret := <-returns:
		return OutcomeUnroutable, fmt.Errorf("returned by broker: %s (code %d)", ret.ReplyText, ret.ReplyCode)
	default:
	}

	if !conf.Acked() {
		return OutcomeTransient, errors.New("nacked by broker")
	}
	return OutcomeDelivered, nil
}

// ensure returns a live confirm-mode channel, dialing or redialing as
// needed.
func (p *Publisher) ensure() (amqpChan, chan amqp.Return, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed() {
		return p.channel, p.returns, nil
	}

	p.closeLocked()

	conn, err := p.dial()
	if err != nil {
		return nil, nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	p.conn = conn
	p.channel = ch
	p.returns = ch.NotifyReturn(make(chan amqp.Return, 1))

	p.log.Info("Connected to RabbitMQ",
		zap.String("exchange", p.cfg.Exchange),
		zap.String("connection_name", p.cfg.ConnectionName),
	)
	return p.channel, p.returns, nil
}

// drainReturns clears returns buffered by an earlier publish so they cannot
// be attributed to the next one.
func (p *Publisher) drainReturns(returns chan amqp.Return) {
	for {
		select {
		case ret := <-returns:
			p.log.Debug("Discarding stale broker return",
				zap.String("routing_key", ret.RoutingKey),
			)
		default:
			return
		}
	}
}

// teardown drops both handles so the next attempt redials.
func (p *Publisher) teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

func (p *Publisher) closeLocked() {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	p.returns = nil
}

// Close releases the channel and then the connection. Teardown errors are
// swallowed; there is nothing useful to do with them at shutdown.
func (p *Publisher) Close() {
	p.teardown()
	p.log.Info("RabbitMQ publisher closed",
		zap.String("connection_name", p.cfg.ConnectionName),
	)
}

// Healthy reports whether both handles are currently open. It never dials,
// so an idle publisher that has not yet been used reports unhealthy.
func (p *Publisher) Healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed()
}

// sleepContext sleeps for d unless ctx ends first. It reports whether the
// full sleep elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
