package terminal

import (
	"sync"

	"restaurant-pos/internal/models"
)

// CartLine is one aggregated (item, quantity) pair pending submission.
// Item is the menu item as it was when first added, so its price is the
// captured price the order will carry.
type CartLine struct {
	Item     models.MenuItem
	Quantity int
}

// SubtotalCents is the line's captured price times its quantity.
func (l CartLine) SubtotalCents() int64 {
	return l.Item.PriceCents * int64(l.Quantity)
}

// Cart is the terminal's pending order. It holds at most one line per
// menu item id, never a line with quantity below one, and exists only in
// memory until submission clears it.
type Cart struct {
	mu    sync.Mutex
	lines []CartLine
}

// Add puts one more unit of item in the cart. An existing line for the
// item is incremented in place; otherwise a new line is appended at the
// end with quantity 1. Line order is preserved.
func (c *Cart) Add(item models.MenuItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Item.ID == item.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, CartLine{Item: item, Quantity: 1})
}

// Remove takes one unit of the item out of the cart. A line at quantity
// 1 is removed entirely; an absent item id is a no-op.
func (c *Cart) Remove(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Item.ID != itemID {
			continue
		}
		if c.lines[i].Quantity > 1 {
			c.lines[i].Quantity--
		} else {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		return
	}
}

// Lines returns a copy of the cart's lines in insertion order.
func (c *Cart) Lines() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]CartLine, len(c.lines))
	copy(lines, c.lines)
	return lines
}

// TotalCents sums captured price times quantity over all lines.
func (c *Cart) TotalCents() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, line := range c.lines {
		total += line.Item.PriceCents * int64(line.Quantity)
	}
	return total
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Clear discards every line.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// OrderLines converts the cart into order line payloads carrying the
// captured prices.
func (c *Cart) OrderLines() []models.OrderLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]models.OrderLine, 0, len(c.lines))
	for _, line := range c.lines {
		lines = append(lines, models.OrderLine{
			MenuItemID: line.Item.ID,
			Quantity:   line.Quantity,
			PriceCents: line.Item.PriceCents,
		})
	}
	return lines
}
