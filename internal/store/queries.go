package store

// Menu queries
const (
	ListActiveMenuItemsSQL = `
		SELECT id::text, name, price_cents, category, sold_today, is_active, created_at, updated_at
		FROM menu_items
		WHERE is_active = true
		ORDER BY category COLLATE "C" ASC, name COLLATE "C" ASC`
)

// Order queries
const (
	ListOrdersSinceSQL = `
		SELECT id::text, total_cents, created_at
		FROM orders
		WHERE created_at >= $1
		ORDER BY created_at DESC`

	InsertOrderSQL = `
		INSERT INTO orders (total_cents)
		VALUES ($1)
		RETURNING id::text, created_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, menu_item_id, quantity, price_cents)
		VALUES ($1, $2, $3, $4)`
)
