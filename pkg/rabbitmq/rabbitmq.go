package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
)

// ErrReject tells the consume loop to drop a message instead of requeueing it.
// Handlers wrap it for payloads that will never succeed.
var ErrReject = errors.New("reject message")

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *slog.Logger
	mu      sync.Mutex // amqp channels are not safe for concurrent publishes
}

// Config holds RabbitMQ connection details and the queues to declare up front.
type Config struct {
	URL    string
	Queues []string
	Logger *slog.Logger
}

// NewClient connects to RabbitMQ, opens a channel and declares every configured queue as durable.
func NewClient(cfg Config) (*Client, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, queue := range cfg.Queues {
		if err := declare(ch, queue); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
	}

	log.Info("rabbitmq client connected", slog.Any("queues", cfg.Queues))
	return &Client{conn: conn, channel: ch, log: log}, nil
}

func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", queue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishJSON marshals payload and publishes it as a persistent message on queue
// through the default exchange.
func (c *Client) PublishJSON(queue string, payload interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message for %s: %w", queue, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		"",    // exchange: default exchange
		queue, // routing key: the queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", queue, err)
	}
	c.log.Debug("message published", slog.String("queue", queue), slog.Int("bytes", len(body)))
	return nil
}

// Consume registers a consumer on queue and processes deliveries in a goroutine until
// the channel closes. A nil handler result acks; ErrReject drops; any other error requeues.
func (c *Client) Consume(queue string, handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	c.mu.Lock()
	if err := declare(c.channel, queue); err != nil {
		c.mu.Unlock()
		return err
	}
	msgs, err := c.channel.Consume(
		queue, // queue
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", queue, err)
	}

	c.log.Info("waiting for messages", slog.String("queue", queue))
	go func() {
		for msg := range msgs {
			settle(c.log, msg, handler(msg))
		}
		c.log.Info("consumer stopped", slog.String("queue", queue))
	}()
	return nil
}

// Acknowledger is the subset of amqp.Delivery used to settle a message.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func settle(log *slog.Logger, msg amqp.Delivery, handlerErr error) {
	if err := Settle(msg, handlerErr); err != nil {
		log.Error("failed to settle message", slog.Uint64("deliveryTag", msg.DeliveryTag), slog.Any("error", err))
	}
	if handlerErr != nil {
		log.Warn("message handler failed", slog.Uint64("deliveryTag", msg.DeliveryTag), slog.Any("error", handlerErr))
	}
}

// Settle acks, drops or requeues a delivery depending on the handler result.
func Settle(msg Acknowledger, handlerErr error) error {
	switch {
	case handlerErr == nil:
		return msg.Ack(false)
	case errors.Is(handlerErr, ErrReject):
		return msg.Nack(false, false)
	default:
		return msg.Nack(false, true)
	}
}
