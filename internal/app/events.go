package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"gamestore/internal/services"
	"gamestore/pkg/rabbitmq"

	amqp "github.com/streadway/amqp"
)

// OrderEventLogger consumes order.created events and records them in the log.
func OrderEventLogger(log *slog.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event services.OrderCreatedEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("decode order.created: %w: %v", rabbitmq.ErrReject, err)
		}
		log.Info("order created",
			slog.String("messageID", event.MessageID),
			slog.Uint64("orderID", uint64(event.OrderID)),
			slog.String("userID", event.UserID),
			slog.String("total", event.Total.StringFixed(2)),
			slog.Int("lines", len(event.Items)),
		)
		return nil
	}
}
