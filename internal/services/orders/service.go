package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

var (
	// ErrEmptyCart is returned when a submission carries no lines. No
	// backend call is made.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrSubmitInFlight is returned when a submission is attempted while
	// a previous one is still pending.
	ErrSubmitInFlight = errors.New("order submission already in flight")
)

// Writer is the slice of the backend the submission service needs.
type Writer interface {
	CreateOrder(ctx context.Context, totalCents int64) (models.Order, error)
	CreateOrderItems(ctx context.Context, orderID string, lines []models.OrderLine) error
}

// Service submits finalized carts as orders. Submissions are serialized:
// the confirm trigger stays disabled while one is pending.
type Service struct {
	writer Writer
	reader *Reader
	logger *logger.Logger

	mu       sync.Mutex
	inFlight bool
}

// NewService creates a submission service. reader may be nil; when set it
// is refreshed after each successful submission.
func NewService(writer Writer, reader *Reader, log *logger.Logger) *Service {
	return &Service{
		writer: writer,
		reader: reader,
		logger: log,
	}
}

// Submit writes one order row carrying the cart total, then the order's
// lines. The total uses the prices captured when each line entered the
// cart, so a menu price change mid-session cannot move an in-flight cart.
//
// The two writes are deliberately discrete: the backend contract exposes
// inserts, not transactions. If the second write fails the order row
// survives without lines; the orphan is logged with its id and the error
// is returned so the caller keeps the cart for a retry.
func (s *Service) Submit(ctx context.Context, requestID string, lines []models.OrderLine) (models.Order, error) {
	if len(lines) == 0 {
		return models.Order{}, ErrEmptyCart
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return models.Order{}, ErrSubmitInFlight
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	var totalCents int64
	for _, line := range lines {
		totalCents += line.PriceCents * int64(line.Quantity)
	}

	order, err := s.writer.CreateOrder(ctx, totalCents)
	if err != nil {
		s.logger.Error("order_insert_failed", requestID, "Failed to create order", err, map[string]interface{}{
			"total_cents": totalCents,
		})
		return models.Order{}, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.writer.CreateOrderItems(ctx, order.ID, lines); err != nil {
		// The order row exists without its items now. Nothing here
		// deletes it; the id in this log line is what an operator has.
		s.logger.Error("order_items_insert_failed", requestID, "Order persisted without its items", err, map[string]interface{}{
			"order_id":    order.ID,
			"line_count":  len(lines),
			"total_cents": totalCents,
		})
		return models.Order{}, fmt.Errorf("failed to create order items: %w", err)
	}

	s.logger.Info("order_created", requestID, "Order submitted", map[string]interface{}{
		"order_id":    order.ID,
		"line_count":  len(lines),
		"total_cents": totalCents,
	})

	if s.reader != nil {
		s.reader.Refresh()
	}

	return order, nil
}
