package messaging

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/logger"
)

// Handler is invoked once per change notification. The notification is a
// trigger only; it carries no row data worth passing along.
type Handler func()

// Subscription is a live binding to the changes exchange. Close releases
// it; callers must close on every teardown path.
type Subscription struct {
	channel   *amqp091.Channel
	tag       string
	logger    *logger.Logger
	closeOnce sync.Once
}

// Subscriber registers handlers for table-change notifications.
type Subscriber struct {
	conn   *Connection
	logger *logger.Logger
}

// NewSubscriber creates a new change subscriber.
func NewSubscriber(conn *Connection, log *logger.Logger) *Subscriber {
	return &Subscriber{
		conn:   conn,
		logger: log,
	}
}

// Subscribe binds handler to changes on table. Event may be EventInsert,
// EventUpdate, EventDelete or EventAny. Each subscription gets its own
// exclusive auto-delete queue, so notifications fan out to every
// subscriber and the broker cleans up when the subscription closes.
func (s *Subscriber) Subscribe(table, event string, handler Handler) (*Subscription, error) {
	if s.conn.IsClosed() {
		if err := s.conn.Reconnect(); err != nil {
			return nil, fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	channel, err := s.conn.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	routingKey := table + "." + event
	tag := fmt.Sprintf("pos-%s-%s", table, uuid.NewString())

	queue, err := channel.QueueDeclare(
		"",    // name (broker-generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = channel.QueueBind(
		queue.Name,      // queue name
		routingKey,      // routing key
		ChangesExchange, // exchange
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("failed to bind queue to %s: %w", routingKey, err)
	}

	msgs, err := channel.Consume(
		queue.Name, // queue
		tag,        // consumer
		true,       // auto-ack (notifications are triggers, not work items)
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	s.logger.Info("subscription_started",
		"",
		fmt.Sprintf("Subscribed to %s", routingKey),
		map[string]interface{}{
			"routing_key": routingKey,
			"queue":       queue.Name,
		})

	go func() {
		for range msgs {
			handler()
		}
		s.logger.Debug("subscription_drained",
			"",
			fmt.Sprintf("Delivery channel closed for %s", routingKey),
			nil)
	}()

	return &Subscription{
		channel: channel,
		tag:     tag,
		logger:  s.logger,
	}, nil
}

// Close cancels the consumer and releases the underlying queue. It is
// idempotent.
func (sub *Subscription) Close() error {
	var err error
	sub.closeOnce.Do(func() {
		if cancelErr := sub.channel.Cancel(sub.tag, false); cancelErr != nil {
			sub.logger.Error("subscription_cancel_failed", "", "Failed to cancel consumer", cancelErr, nil)
			err = cancelErr
		}
		if closeErr := sub.channel.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	})
	return err
}
