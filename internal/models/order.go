package models

import "time"

// Order is a finalized purchase. It is created exactly once per checkout
// and never mutated afterwards.
type Order struct {
	ID         string    `json:"id"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderItem is one line of a finalized order. PriceCents is the menu
// price captured when the line entered the cart, so later menu price
// changes never rewrite history.
type OrderItem struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	MenuItemID string    `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
	PriceCents int64     `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderLine is the payload for one order item insert.
type OrderLine struct {
	MenuItemID string
	Quantity   int
	PriceCents int64
}

// DayStats aggregates the current day's activity.
type DayStats struct {
	RevenueCents int64 `json:"revenue_cents"`
	OrderCount   int   `json:"order_count"`
	ItemsSold    int   `json:"items_sold"`
}

// StartOfDay returns midnight of t's local calendar day.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
