package models

import "time"

// MenuItem is a sellable product. Prices are integer minor units (cents)
// so totals stay exact.
type MenuItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Category   string    `json:"category"`
	SoldToday  int       `json:"sold_today"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MenuCategory is one category's worth of menu items, in menu order.
type MenuCategory struct {
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// GroupByCategory splits an ordered item sequence into categories,
// preserving the order the sort induced. Items arrive sorted by category
// then name, so each category appears exactly once.
func GroupByCategory(items []MenuItem) []MenuCategory {
	var categories []MenuCategory
	for _, item := range items {
		n := len(categories)
		if n == 0 || categories[n-1].Name != item.Category {
			categories = append(categories, MenuCategory{Name: item.Category})
			n++
		}
		categories[n-1].Items = append(categories[n-1].Items, item)
	}
	return categories
}
