package catalog

import (
	"time"

	"shackbot/internal/models"
)

// fallbackItems is served whenever the catalog source is unavailable or
// empty, so matching always has candidates.
var fallbackItems = []models.MenuItem{
	{Name: "ShackBurger", Price: 6.99, Calories: 500, Category: string(models.MenuCategoryBurgers)},
	{Name: "Cheeseburger", Price: 6.49, Calories: 440, Category: string(models.MenuCategoryBurgers)},
	{Name: "Hamburger", Price: 6.49, Calories: 370, Category: string(models.MenuCategoryBurgers)},
	{Name: "Avocado Bacon Burger", Price: 9.49, Calories: 610, Category: string(models.MenuCategoryBurgers)},
	{Name: "SmokeShack", Price: 8.49, Calories: 570, Category: string(models.MenuCategoryBurgers)},
	{Name: "Bacon Cheeseburger", Price: 11.49, Calories: 760, Category: string(models.MenuCategoryBurgers)},
	{Name: "Fries", Price: 3.99, Calories: 470, Category: string(models.MenuCategoryFries)},
	{Name: "Vanilla Shake", Price: 5.99, Calories: 680, Category: string(models.MenuCategoryMilkshakes)},
	{Name: "Chocolate Shake", Price: 5.99, Calories: 750, Category: string(models.MenuCategoryMilkshakes)},
	{Name: "Strawberry Shake", Price: 5.99, Calories: 690, Category: string(models.MenuCategoryMilkshakes)},
	{Name: "Topo Chico", Price: 3.49, Calories: 0, Category: string(models.MenuCategoryDrinks)},
}

// FallbackItems returns a copy of the fixed minimal menu
func FallbackItems() []models.MenuItem {
	items := make([]models.MenuItem, len(fallbackItems))
	copy(items, fallbackItems)
	return items
}

// Fallback returns the fixed minimal menu as a snapshot
func Fallback(at time.Time) models.Catalog {
	return models.NewCatalog(fallbackItems, at)
}
