package models

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

// MenuItem represents an orderable item on the menu
type MenuItem struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Calories int     `json:"calories"`
}

// MenuCategory represents the category of a menu item
type MenuCategory string

const (
	// Menu categories
	MenuCategoryBurgers    MenuCategory = "Burgers"
	MenuCategoryFries      MenuCategory = "Fries"
	MenuCategoryMilkshakes MenuCategory = "Milkshakes"
	MenuCategoryDrinks     MenuCategory = "Drinks"
)

// ValidateMenuItem validates a menu item
func ValidateMenuItem(item *MenuItem) error {
	if Normalize(item.Name) == "" {
		return fmt.Errorf("menu item name is required")
	}
	if item.Price < 0 || math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
		return fmt.Errorf("menu item price must be a non-negative number")
	}
	if item.Calories < 0 {
		return fmt.Errorf("menu item calories must be non-negative")
	}
	return nil
}

// Key returns the normalized name used for matching and uniqueness
func (mi MenuItem) Key() string {
	return Normalize(mi.Name)
}

// PriceCents returns the price in whole cents
func (mi MenuItem) PriceCents() int64 {
	return ToCents(mi.Price)
}

// IsInCategory checks if the item belongs to a specific category
func (mi MenuItem) IsInCategory(category string) bool {
	return strings.EqualFold(mi.Category, category)
}

// Catalog is an immutable snapshot of the orderable items
type Catalog struct {
	Items     []MenuItem `json:"items"`
	FetchedAt time.Time  `json:"fetched_at"`

	index map[string]int
}

// NewCatalog builds a snapshot from items. Invalid items and items whose
// normalized name was already seen are dropped, first one wins.
func NewCatalog(items []MenuItem, fetchedAt time.Time) Catalog {
	c := Catalog{
		Items:     make([]MenuItem, 0, len(items)),
		FetchedAt: fetchedAt,
		index:     make(map[string]int, len(items)),
	}
	for _, item := range items {
		if ValidateMenuItem(&item) != nil {
			continue
		}
		key := item.Key()
		if _, dup := c.index[key]; dup {
			continue
		}
		c.index[key] = len(c.Items)
		c.Items = append(c.Items, item)
	}
	return c
}

// Len returns the number of items in the snapshot
func (c Catalog) Len() int {
	return len(c.Items)
}

// IsEmpty reports whether the snapshot has no items
func (c Catalog) IsEmpty() bool {
	return len(c.Items) == 0
}

// Lookup finds an item by its normalized name
func (c Catalog) Lookup(name string) (MenuItem, bool) {
	key := Normalize(name)
	if c.index != nil {
		if i, ok := c.index[key]; ok {
			return c.Items[i], true
		}
		return MenuItem{}, false
	}
	for _, item := range c.Items {
		if item.Key() == key {
			return item, true
		}
	}
	return MenuItem{}, false
}

// ByCategory returns the items of one category in catalog order
func (c Catalog) ByCategory(category string) []MenuItem {
	items := make([]MenuItem, 0)
	for _, item := range c.Items {
		if item.IsInCategory(category) {
			items = append(items, item)
		}
	}
	return items
}

// Categories returns the distinct categories in first-seen order
func (c Catalog) Categories() []string {
	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, item := range c.Items {
		if !seen[item.Category] {
			seen[item.Category] = true
			categories = append(categories, item.Category)
		}
	}
	return categories
}

// Normalize lowercases, trims and collapses inner whitespace
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Compact strips everything but letters and digits from the normalized form,
// so "Shack Burger" and "ShackBurger" compare equal.
func Compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ToCents converts a decimal dollar amount to whole cents
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FormatCents renders cents as a dollar string, e.g. "$13.98"
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
