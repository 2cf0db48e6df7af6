package dispatch

import (
	"context"
	"time"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/eas"
)

// Publisher is the slice of the RabbitMQ publisher the broker sink needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// BrokerSink publishes the alert envelope to the alert exchange through the
// reliable publisher; retries and unroutable handling live there.
type BrokerSink struct {
	pub        Publisher
	routingKey string
	source     string
	now        func() time.Time
}

func NewBrokerSink(pub Publisher, routingKey, source string) *BrokerSink {
	return &BrokerSink{
		pub:        pub,
		routingKey: routingKey,
		source:     source,
		now:        time.Now,
	}
}

func (s *BrokerSink) Name() string {
	return "rabbitmq"
}

func (s *BrokerSink) Send(ctx context.Context, alert *eas.Alert) error {
	return s.pub.Publish(ctx, s.routingKey, Envelope{
		Source:                s.source,
		AlertID:               alert.ID,
		TimestampProcessedUTC: s.now().UTC(),
		MessageText:           alert.Text,
		EASData:               easData(alert),
	})
}
