package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"shackbot/internal/logger"
	"shackbot/internal/models"
	"shackbot/internal/order"
)

// ErrOrderNotFound is returned when no order has the requested id
var ErrOrderNotFound = errors.New("order not found")

// OrderStore persists checked-out orders
type OrderStore struct {
	db     *gorm.DB
	newID  func() string
	now    func() time.Time
	logger *zap.Logger
}

// NewOrderStore creates a store on db. Order ids are random UUIDs.
func NewOrderStore(db *gorm.DB, log *zap.Logger) *OrderStore {
	return &OrderStore{
		db:     db,
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
		logger: logger.Component(log, "order_store"),
	}
}

// SaveOrder writes the order and its lines in one transaction
func (s *OrderStore) SaveOrder(ctx context.Context, snap order.Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rec := models.OrderRecord{
		OrderID:    s.newID(),
		TotalCents: snap.TotalCents,
		Status:     string(models.OrderStatusPending),
		SessionID:  snap.SessionID,
		PlacedAt:   s.now().UTC(),
	}
	for _, l := range snap.Lines {
		rec.Items = append(rec.Items, models.OrderItemRecord{
			Name:       l.ItemName,
			Category:   l.Category,
			PriceCents: l.PriceCents,
			Quantity:   l.Quantity,
		})
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return "", fmt.Errorf("begin order transaction: %w", tx.Error)
	}
	if err := tx.Create(&rec).Error; err != nil {
		tx.Rollback()
		return "", fmt.Errorf("insert order: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return "", fmt.Errorf("commit order: %w", err)
	}

	s.logger.Info("order saved",
		zap.String("order_id", rec.OrderID),
		zap.String("session_id", snap.SessionID),
		zap.Int("lines", len(rec.Items)),
		zap.Int64("total_cents", rec.TotalCents),
	)
	return rec.OrderID, nil
}

// GetOrder loads an order and its lines by order id
func (s *OrderStore) GetOrder(ctx context.Context, orderID string) (*models.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec models.OrderRecord
	err := s.db.Preload("Items").Where("order_id = ?", orderID).First(&rec).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	return &rec, nil
}

// ListBySession returns a session's orders, newest first
func (s *OrderStore) ListBySession(ctx context.Context, sessionID string) ([]models.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var recs []models.OrderRecord
	if err := s.db.Preload("Items").Where("session_id = ?", sessionID).Order("id desc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return recs, nil
}
