package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
)

// ChangeNotifier announces table changes after successful writes.
type ChangeNotifier interface {
	Publish(ctx context.Context, table, event string) error
}

// Store reads and writes POS records in PostgreSQL. Writes announce
// themselves on the change bus so every terminal refreshes the same way.
type Store struct {
	db       *database.DB
	notifier ChangeNotifier
	logger   *logger.Logger
}

// New creates a Store.
func New(db *database.DB, notifier ChangeNotifier, log *logger.Logger) *Store {
	return &Store{
		db:       db,
		notifier: notifier,
		logger:   log,
	}
}

// ListActiveMenuItems returns the active menu, sorted by category then
// name ascending.
func (s *Store) ListActiveMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := s.db.Query(ctx, ListActiveMenuItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		var item models.MenuItem
		err := rows.Scan(&item.ID, &item.Name, &item.PriceCents, &item.Category,
			&item.SoldToday, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListOrdersSince returns orders created at or after since, newest first.
func (s *Store) ListOrdersSince(ctx context.Context, since time.Time) ([]models.Order, error) {
	rows, err := s.db.Query(ctx, ListOrdersSinceSQL, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(&order.ID, &order.TotalCents, &order.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// CreateOrder inserts one order row and returns it with its generated id
// and timestamp. A change notification goes out after the insert commits.
func (s *Store) CreateOrder(ctx context.Context, totalCents int64) (models.Order, error) {
	order := models.Order{TotalCents: totalCents}

	err := s.db.QueryRow(ctx, InsertOrderSQL, totalCents).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	s.notifyChange(ctx, "orders", messaging.EventInsert)

	return order, nil
}

// CreateOrderItems inserts the order's lines in one batch. Callers invoke
// it only after CreateOrder has resolved.
func (s *Store) CreateOrderItems(ctx context.Context, orderID string, lines []models.OrderLine) error {
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(InsertOrderItemSQL, orderID, line.MenuItemID, line.Quantity, line.PriceCents)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range lines {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to finish order item batch: %w", err)
	}

	s.notifyChange(ctx, "order_items", messaging.EventInsert)

	return nil
}

// notifyChange publishes a change event. Delivery is best effort: a lost
// notification costs a refresh, not data, so the write is not failed.
func (s *Store) notifyChange(ctx context.Context, table, event string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, table, event); err != nil {
		s.logger.Error("change_notify_failed",
			"",
			fmt.Sprintf("Failed to announce %s.%s", table, event),
			err, nil)
	}
}
