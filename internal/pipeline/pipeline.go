// Package pipeline runs the decode loop: read serial lines, assemble
// blocks, resolve alerts, dispatch them.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/dispatch"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/eas"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/endec"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/metrics"
)

// LineSource is the line-oriented reader the pipeline drains. endec.Port is
// the production implementation; tests script their own.
type LineSource interface {
	ReadLine() (string, error)
	Close() error
}

// Config carries pipeline settings.
type Config struct {
	Device         string
	ReconnectDelay time.Duration
}

// Pipeline owns the serial session: open the device, feed lines through the
// assembler, resolve completed blocks, dispatch alerts, and reopen the
// device after failures. One Pipeline runs one goroutine.
type Pipeline struct {
	cfg        Config
	open       func() (LineSource, error)
	parser     *eas.Parser
	dispatcher *dispatch.Dispatcher
	log        *zap.Logger

	connected   atomic.Bool
	lastAlertAt atomic.Int64
}

func New(cfg Config, open func() (LineSource, error), parser *eas.Parser, dispatcher *dispatch.Dispatcher, log *zap.Logger) *Pipeline {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Pipeline{
		cfg:        cfg,
		open:       open,
		parser:     parser,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Run opens the device and drives read sessions until ctx ends. Every
// session failure closes the port, waits out the reconnect delay, and
// starts over with fresh assembler state; a half-collected block does not
// survive a broken serial link.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		src, err := p.open()
		if err != nil {
			metrics.SerialConnected.Set(0)
			p.log.Error("Failed to open serial device",
				zap.String("device", p.cfg.Device),
				zap.Error(err),
				zap.Duration("retry_in", p.cfg.ReconnectDelay),
			)
			if !sleepContext(ctx, p.cfg.ReconnectDelay) {
				return nil
			}
			continue
		}

		p.connected.Store(true)
		metrics.SerialConnected.Set(1)
		p.log.Info("Listening for ENDEC news feed",
			zap.String("device", p.cfg.Device),
		)

		err = p.session(ctx, src)
		_ = src.Close()
		p.connected.Store(false)
		metrics.SerialConnected.Set(0)

		if ctx.Err() != nil {
			p.log.Info("Pipeline stopped")
			return nil
		}

		metrics.SerialReconnects.Inc()
		p.log.Warn("Serial session ended, reopening",
			zap.Error(err),
			zap.Duration("retry_in", p.cfg.ReconnectDelay),
		)
		if !sleepContext(ctx, p.cfg.ReconnectDelay) {
			return nil
		}
	}
}

// session reads lines until ctx ends or the source fails. Read timeouts are
// not failures; they flush a block the ENDEC never closed.
func (p *Pipeline) session(ctx context.Context, src LineSource) error {
	assembler := endec.NewAssembler()
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := src.ReadLine()
		switch {
		case err == nil:
			for _, block := range assembler.Feed(line) {
				metrics.BlocksAssembled.WithLabelValues(metrics.CompletionMarker).Inc()
				p.process(ctx, block)
			}
		case errors.Is(err, endec.ErrReadTimeout):
			if block, ok := assembler.Flush(); ok {
				metrics.BlocksAssembled.WithLabelValues(metrics.CompletionFlush).Inc()
				p.log.Warn("Read timed out mid-block, flushing partial alert",
					zap.Int("lines", len(block.Lines)),
				)
				p.process(ctx, block)
			}
		default:
			return err
		}
	}
}

func (p *Pipeline) process(ctx context.Context, block endec.Block) {
	alert, ok := p.parser.ResolveBlock(block.Lines)
	if !ok {
		p.log.Debug("Discarding block with no content")
		return
	}
	alert.ID = uuid.NewString()

	if alert.Header != nil {
		metrics.AlertsDecoded.WithLabelValues(metrics.KindHeader).Inc()
		p.log.Info("Decoded EAS alert",
			zap.String("alert_id", alert.ID),
			zap.String("event", alert.Header.EventName),
			zap.String("event_code", alert.Header.EventCode),
			zap.Strings("locations", alert.Header.LocationNames),
			zap.Int("duration_min", alert.Header.DurationMin),
			zap.String("sender", alert.Header.Sender),
		)
	} else {
		metrics.AlertsDecoded.WithLabelValues(metrics.KindPlain).Inc()
		p.log.Info("Decoded plain text message",
			zap.String("alert_id", alert.ID),
			zap.Int("length", len(alert.Text)),
		)
	}

	p.dispatcher.Dispatch(ctx, &alert)
	p.lastAlertAt.Store(time.Now().Unix())
}

// Connected reports whether the serial session is currently open.
func (p *Pipeline) Connected() bool {
	return p.connected.Load()
}

// LastAlertAt returns when the pipeline last dispatched an alert, zero if
// it never has.
func (p *Pipeline) LastAlertAt() time.Time {
	unix := p.lastAlertAt.Load()
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

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
