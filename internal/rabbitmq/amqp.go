package rabbitmq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// The publisher talks to the broker through these narrow interfaces rather
// than the amqp091 types directly, so the retry behavior can be exercised
// against a scripted broker in tests.

type amqpConn interface {
	Channel() (amqpChan, error)
	IsClosed() bool
	Close() error
}

type amqpChan interface {
	Confirm(noWait bool) error
	NotifyReturn(c chan amqp.Return) chan amqp.Return
	PublishWithDeferredConfirm(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (confirmation, error)
	IsClosed() bool
	Close() error
}

// confirmation is the slice of amqp.DeferredConfirmation the publisher
// waits on.
type confirmation interface {
	Done() <-chan struct{}
	Acked() bool
}

type realConn struct {
	*amqp.Connection
}

func (c realConn) Channel() (amqpChan, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return realChan{ch}, nil
}

type realChan struct {
	*amqp.Channel
}

func (c realChan) PublishWithDeferredConfirm(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (confirmation, error) {
	return c.Channel.PublishWithDeferredConfirmWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

// dialAMQP opens a broker connection the same way for every client in this
// package. The 10 second heartbeat helps detect dead connections quickly;
// the connection name shows up in the management UI.
func dialAMQP(url, connectionName string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp.Table{
			"connection_name": connectionName,
		},
	})
}
