package models

import (
	"testing"
	"time"
)

func TestGroupByCategory(t *testing.T) {
	items := []MenuItem{
		{ID: "1", Name: "Cola", Category: "Drinks"},
		{ID: "2", Name: "Water", Category: "Drinks"},
		{ID: "3", Name: "Burger", Category: "Mains"},
		{ID: "4", Name: "Pizza", Category: "Mains"},
		{ID: "5", Name: "Fries", Category: "Sides"},
	}

	categories := GroupByCategory(items)

	if len(categories) != 3 {
		t.Fatalf("got %d categories, want 3", len(categories))
	}

	wantOrder := []string{"Drinks", "Mains", "Sides"}
	wantCounts := []int{2, 2, 1}
	for i, c := range categories {
		if c.Name != wantOrder[i] {
			t.Errorf("category[%d] = %q, want %q", i, c.Name, wantOrder[i])
		}
		if len(c.Items) != wantCounts[i] {
			t.Errorf("category %q has %d items, want %d", c.Name, len(c.Items), wantCounts[i])
		}
	}

	if categories[1].Items[0].Name != "Burger" {
		t.Errorf("Mains[0] = %q, want Burger", categories[1].Items[0].Name)
	}
}

func TestGroupByCategoryEmpty(t *testing.T) {
	if got := GroupByCategory(nil); got != nil {
		t.Errorf("GroupByCategory(nil) = %v, want nil", got)
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{1250, "12.50"},
		{2500, "25.00"},
		{999999, "9999.99"},
		{-150, "-1.50"},
	}
	for _, tt := range tests {
		if got := FormatCents(tt.cents); got != tt.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+4", 4*3600)
	ts := time.Date(2025, 3, 14, 15, 9, 26, 535, loc)

	got := StartOfDay(ts)

	want := time.Date(2025, 3, 14, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("StartOfDay() = %v, want %v", got, want)
	}
	if got.Location() != loc {
		t.Errorf("StartOfDay() changed location to %v", got.Location())
	}
}
