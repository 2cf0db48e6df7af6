package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConsumerConfig carries the consuming topology. The exchange is declared
// and the queue bound on every (re)connect, so the consumer can come up
// before the producer exists.
type ConsumerConfig struct {
	URL            string
	Exchange       string
	Queue          string
	RoutingKey     string
	ConnectionName string
}

// Consumer maintains a consuming connection to RabbitMQ. Unlike the
// publisher it cannot wait for the next call to notice a dead connection;
// Run redials with exponential backoff whenever the delivery stream ends.
type Consumer struct {
	cfg ConsumerConfig
	log *zap.Logger
}

func NewConsumer(cfg ConsumerConfig, log *zap.Logger) *Consumer {
	return &Consumer{cfg: cfg, log: log}
}

// Run consumes deliveries and hands each to handle until ctx ends. A nil
// handler result acks the delivery; an error rejects it without requeue, so
// a malformed message cannot loop forever.
func (c *Consumer) Run(ctx context.Context, handle func(amqp.Delivery) error) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, channel, deliveries, err := c.setup()
		if err != nil {
			c.log.Warn("Failed to set up RabbitMQ consumer, retrying...",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			if !sleepContext(ctx, backoff) {
				return nil
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		c.log.Info("Consuming from queue",
			zap.String("queue", c.cfg.Queue),
			zap.String("exchange", c.cfg.Exchange),
			zap.String("routing_key", c.cfg.RoutingKey),
		)

		done := c.consume(ctx, deliveries, handle)
		_ = channel.Close()
		_ = conn.Close()
		if done {
			c.log.Info("RabbitMQ consumer stopped")
			return nil
		}
		c.log.Warn("Connection to RabbitMQ lost, reconnecting")
	}
}

// setup dials the broker, declares the topology, and starts the delivery
// stream.
func (c *Consumer) setup() (*amqp.Connection, *amqp.Channel, <-chan amqp.Delivery, error) {
	conn, err := dialAMQP(c.cfg.URL, c.cfg.ConnectionName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(err error) (*amqp.Connection, *amqp.Channel, <-chan amqp.Delivery, error) {
		_ = channel.Close()
		_ = conn.Close()
		return nil, nil, nil, err
	}

	if err := channel.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare exchange %s: %w", c.cfg.Exchange, err))
	}
	queue, err := channel.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("declare queue %s: %w", c.cfg.Queue, err))
	}
	if err := channel.QueueBind(queue.Name, c.cfg.RoutingKey, c.cfg.Exchange, false, nil); err != nil {
		return fail(fmt.Errorf("bind queue %s to %s: %w", queue.Name, c.cfg.Exchange, err))
	}
	if err := channel.Qos(1, 0, false); err != nil {
		return fail(fmt.Errorf("set QoS: %w", err))
	}

	consumerTag := fmt.Sprintf("%s-%d", c.cfg.ConnectionName, time.Now().Unix())
	deliveries, err := channel.Consume(queue.Name, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("register consumer: %w", err))
	}

	return conn, channel, deliveries, nil
}

// consume drains deliveries until ctx ends (returns true) or the stream
// closes underneath us (returns false).
func (c *Consumer) consume(ctx context.Context, deliveries <-chan amqp.Delivery, handle func(amqp.Delivery) error) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case msg, ok := <-deliveries:
			if !ok {
				return false
			}
			if err := handle(msg); err != nil {
				c.log.Error("Failed to process message from queue",
					zap.String("queue", c.cfg.Queue),
					zap.Uint64("delivery_tag", msg.DeliveryTag),
					zap.Error(err),
				)
				if err := msg.Nack(false, false); err != nil {
					c.log.Error("Failed to nack message",
						zap.Uint64("delivery_tag", msg.DeliveryTag),
						zap.Error(err),
					)
				}
				continue
			}
			if err := msg.Ack(false); err != nil {
				c.log.Error("Failed to ack message",
					zap.Uint64("delivery_tag", msg.DeliveryTag),
					zap.Error(err),
				)
			}
		}
	}
}
