package models

import (
	"time"

	"github.com/jinzhu/gorm"
)

// OrderRecord represents a checked-out order as persisted
type OrderRecord struct {
	gorm.Model
	OrderID    string            `gorm:"unique_index;not null"`
	Items      []OrderItemRecord `gorm:"foreignkey:OrderRecordID"`
	TotalCents int64
	Status     string
	SessionID  string
	PlacedAt   time.Time
}

// TableName pins the table name used by gorm
func (OrderRecord) TableName() string {
	return "orders"
}

// OrderItemRecord represents one line of a persisted order
type OrderItemRecord struct {
	gorm.Model
	OrderRecordID uint
	Name          string
	Category      string
	PriceCents    int64
	Quantity      int
}

// TableName pins the table name used by gorm
func (OrderItemRecord) TableName() string {
	return "order_items"
}

// MenuItemRecord represents a menu row in the catalog source table
type MenuItemRecord struct {
	gorm.Model
	Name     string `gorm:"unique_index;not null"`
	Category string
	Price    float64
	Calories int
}

// TableName pins the table name used by gorm
func (MenuItemRecord) TableName() string {
	return "menu_items"
}

// ToMenuItem converts the row into the domain value
func (r MenuItemRecord) ToMenuItem() MenuItem {
	return MenuItem{
		Name:     r.Name,
		Category: r.Category,
		Price:    r.Price,
		Calories: r.Calories,
	}
}

// OrderStatus represents the possible states of a persisted order
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
)
