package database

import (
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"              // SQLite driver

	"shackbot/internal/models"
)

// Open connects to the database. Supported drivers are sqlite3 and postgres.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == "sqlite3" {
		// SQLite allows a single writer; one connection also keeps
		// in-memory databases from splitting across the pool.
		db.DB().SetMaxOpenConns(1)
	}
	db.LogMode(false)
	return db, nil
}

// Migrate creates or updates the tables for menu items and orders
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.MenuItemRecord{},
		&models.OrderRecord{},
		&models.OrderItemRecord{},
	).Error
}

// SeedMenu inserts items when the menu table is empty. It returns the
// number of rows created.
func SeedMenu(db *gorm.DB, items []models.MenuItem) (int, error) {
	var count int
	if err := db.Model(&models.MenuItemRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count menu items: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	tx := db.Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}
	for _, item := range items {
		row := models.MenuItemRecord{
			Name:     item.Name,
			Category: item.Category,
			Price:    item.Price,
			Calories: item.Calories,
		}
		if err := tx.Create(&row).Error; err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("seed menu item %s: %w", item.Name, err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return len(items), nil
}
