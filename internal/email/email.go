// Package email delivers outbound messages either directly or through the message broker.
package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gamestore/pkg/rabbitmq"

	"github.com/google/uuid"
	amqp "github.com/streadway/amqp"
)

// OutboundQueue carries messages waiting for delivery.
const OutboundQueue = "email.outbound"

// Message is the queued form of one email.
type Message struct {
	MessageID string    `json:"message_id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	QueuedAt  time.Time `json:"queued_at"`
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes each message to the log instead of a mail server.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(to) == "" {
		return errors.New("empty recipient")
	}
	s.log.Info("email sent",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("bodyLength", len(body)),
	)
	return nil
}

// Publisher sends a JSON payload to a named queue.
type Publisher interface {
	PublishJSON(queue string, payload interface{}) error
}

// QueueSender hands messages to the broker. Delivery happens later in a Worker.
type QueueSender struct {
	publisher Publisher
	now       func() time.Time
}

func NewQueueSender(publisher Publisher) *QueueSender {
	return &QueueSender{publisher: publisher, now: func() time.Time { return time.Now().UTC() }}
}

func (s *QueueSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := Message{
		MessageID: uuid.New().String(),
		To:        to,
		Subject:   subject,
		Body:      body,
		QueuedAt:  s.now(),
	}
	if err := s.publisher.PublishJSON(OutboundQueue, msg); err != nil {
		return fmt.Errorf("failed to queue email for %s: %w", to, err)
	}
	return nil
}

// Worker consumes queued messages and passes them to a Sender.
type Worker struct {
	log    *slog.Logger
	sender Sender
}

func NewWorker(log *slog.Logger, sender Sender) *Worker {
	return &Worker{log: log, sender: sender}
}

// Handle delivers one queued message. Undecodable or addressless payloads are rejected
// so the broker drops them; delivery failures are returned as-is and get requeued.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	const op = "email.Worker.Handle"

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%s: %w: %v", op, rabbitmq.ErrReject, err)
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("%s: %w: message %s has no recipient", op, rabbitmq.ErrReject, msg.MessageID)
	}

	if err := w.sender.Send(ctx, msg.To, msg.Subject, msg.Body); err != nil {
		w.log.Warn("queued delivery failed", slog.String("op", op), slog.String("messageID", msg.MessageID), slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	w.log.Debug("queued delivery done", slog.String("op", op), slog.String("messageID", msg.MessageID))
	return nil
}

// HandleDelivery adapts Handle to the broker's consume callback.
func (w *Worker) HandleDelivery(msg amqp.Delivery) error {
	return w.Handle(context.Background(), msg.Body)
}
