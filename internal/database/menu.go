package database

import (
	"context"
	"fmt"

	"github.com/jinzhu/gorm"

	"shackbot/internal/catalog"
	"shackbot/internal/models"
)

// MenuRepository reads the menu table. It is the catalog's backing source.
type MenuRepository struct {
	db *gorm.DB
}

// NewMenuRepository creates a repository on db
func NewMenuRepository(db *gorm.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// FetchAll returns every menu item in insertion order
func (r *MenuRepository) FetchAll(ctx context.Context) ([]models.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrSourceUnavailable, err)
	}

	var rows []models.MenuItemRecord
	if err := r.db.Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrSourceUnavailable, err)
	}

	items := make([]models.MenuItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.ToMenuItem())
	}
	return items, nil
}

// UpsertItem creates the item or updates its price, category and calories
func (r *MenuRepository) UpsertItem(item models.MenuItem) error {
	if err := models.ValidateMenuItem(&item); err != nil {
		return err
	}
	var row models.MenuItemRecord
	err := r.db.Where("name = ?", item.Name).First(&row).Error
	switch {
	case gorm.IsRecordNotFoundError(err):
		row = models.MenuItemRecord{Name: item.Name}
	case err != nil:
		return fmt.Errorf("find menu item %s: %w", item.Name, err)
	}
	row.Category = item.Category
	row.Price = item.Price
	row.Calories = item.Calories
	return r.db.Save(&row).Error
}
