package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/metrics"
)

// Heartbeat is the wire payload for one liveness beat. The watchdog on the
// other side of the exchange decodes exactly this shape.
type Heartbeat struct {
	SourceApplication string     `json:"source_application"`
	EventType         string     `json:"event_type"`
	TimestampUTC      time.Time  `json:"timestamp_utc"`
	Status            string     `json:"status"`
	SerialPort        string     `json:"serial_port"`
	SystemInfo        SystemInfo `json:"system_info"`
}

// SystemInfo describes the reporting process.
type SystemInfo struct {
	ListeningPort string `json:"listening_port"`
	Application   string `json:"application_name"`
	Version       string `json:"version"`
}

// Publisher is the slice of the RabbitMQ publisher the monitor needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Config carries the monitor settings.
type Config struct {
	RoutingKey string
	// Interval is the heartbeat cadence, and doubles as the probe cadence
	// once degraded.
	Interval time.Duration
	// Tick is how often the monitor checks whether a beat is due.
	Tick time.Duration

	Source     string
	SerialPort string
	ListenAddr string
	Version    string
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.Tick <= 0 {
		c.Tick = time.Minute
	}
	return c
}

// Monitor publishes the hourly heartbeat through its own publisher, so a
// wedged alert connection cannot silence the liveness signal (and vice
// versa).
type Monitor struct {
	cfg   Config
	pub   Publisher
	log   *zap.Logger
	state State
	now   func() time.Time
}

func NewMonitor(cfg Config, pub Publisher, log *zap.Logger) *Monitor {
	return &Monitor{
		cfg: cfg.withDefaults(),
		pub: pub,
		log: log,
		now: time.Now,
	}
}

// Run checks on every tick whether a heartbeat is due and sends it if so.
// The first beat goes out immediately. Run returns when ctx ends.
func (m *Monitor) Run(ctx context.Context) error {
	m.beatIfDue(ctx)

	ticker := time.NewTicker(m.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.beatIfDue(ctx)
		}
	}
}

func (m *Monitor) beatIfDue(ctx context.Context) {
	now := m.now()
	if !m.state.Due(now, m.cfg.Interval) {
		return
	}
	if m.state.Degraded() {
		m.log.Info("Probing heartbeat publish in degraded state",
			zap.Int("consecutive_failures", m.state.Failures),
		)
	}

	err := m.pub.Publish(ctx, m.cfg.RoutingKey, m.payload(now))
	if err != nil {
		m.state.RecordFailure(m.now())
		metrics.Heartbeats.WithLabelValues(metrics.ResultFailed).Inc()
		m.log.Warn("Heartbeat publish failed",
			zap.Error(err),
			zap.Int("consecutive_failures", m.state.Failures),
			zap.Bool("degraded", m.state.Degraded()),
		)
		return
	}

	if m.state.RecordSuccess(m.now()) {
		m.log.Info("Heartbeat publishing recovered")
	}
	metrics.Heartbeats.WithLabelValues(metrics.ResultOK).Inc()
	m.log.Info("Heartbeat sent",
		zap.String("routing_key", m.cfg.RoutingKey),
	)
}

func (m *Monitor) payload(now time.Time) Heartbeat {
	return Heartbeat{
		SourceApplication: m.cfg.Source,
		EventType:         "health_check",
		TimestampUTC:      now.UTC(),
		Status:            "alive",
		SerialPort:        m.cfg.SerialPort,
		SystemInfo: SystemInfo{
			ListeningPort: m.cfg.ListenAddr,
			Application:   m.cfg.Source,
			Version:       m.cfg.Version,
		},
	}
}
