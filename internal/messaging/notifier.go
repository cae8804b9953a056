package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/logger"
)

// ChangeEvent is the envelope published for a table change. Subscribers
// treat it as a trigger; the payload carries no row data.
type ChangeEvent struct {
	Table string    `json:"table"`
	Event string    `json:"event"`
	At    time.Time `json:"at"`
}

// Notifier publishes table-change notifications to the changes exchange.
type Notifier struct {
	conn   *Connection
	logger *logger.Logger
}

// NewNotifier creates a new change notifier.
func NewNotifier(conn *Connection, log *logger.Logger) *Notifier {
	return &Notifier{
		conn:   conn,
		logger: log,
	}
}

// Publish announces that rows in table changed. Event must be one of
// EventInsert, EventUpdate or EventDelete.
func (n *Notifier) Publish(ctx context.Context, table, event string) error {
	if n.conn.IsClosed() {
		if err := n.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	body, err := json.Marshal(ChangeEvent{
		Table: table,
		Event: event,
		At:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	routingKey := table + "." + event

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = n.conn.Channel().PublishWithContext(
		ctx,
		ChangesExchange, // exchange
		routingKey,      // routing key
		false,           // mandatory
		false,           // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: 1,
			Timestamp:    time.Now(),
		},
	)

	if err != nil {
		n.logger.Error("change_publish_failed",
			"",
			fmt.Sprintf("Failed to publish change for %s", routingKey),
			err, map[string]interface{}{
				"routing_key": routingKey,
			})
		return fmt.Errorf("failed to publish change: %w", err)
	}

	n.logger.Debug("change_published",
		"",
		fmt.Sprintf("Published change for %s", routingKey),
		map[string]interface{}{
			"routing_key": routingKey,
		})

	return nil
}
