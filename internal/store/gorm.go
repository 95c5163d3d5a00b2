package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormRepository stores checkout orders in a SQL database through gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository wraps db. Call Migrate once before use.
func NewGormRepository(db *gorm.DB) *GormRepository {
	if db == nil {
		panic("gorm DB cannot be nil")
	}
	return &GormRepository{db: db}
}

// Migrate creates or updates the checkout order table.
func (r *GormRepository) Migrate() error {
	if err := r.db.AutoMigrate(&CheckoutOrder{}); err != nil {
		return fmt.Errorf("store: migrate checkout orders: %w", err)
	}
	return nil
}

func (r *GormRepository) Create(ctx context.Context, order *CheckoutOrder) error {
	if order == nil {
		return fmt.Errorf("store: checkout order cannot be nil")
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("store: create checkout order: %w", err)
	}
	return nil
}

// Save updates every mutable column guarded by the version column.
func (r *GormRepository) Save(ctx context.Context, order *CheckoutOrder) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&CheckoutOrder{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"intent":                         order.Intent,
			"order_status":                   order.OrderStatus,
			"authorization_id":               order.AuthorizationID,
			"authorization_status":           order.AuthorizationStatus,
			"capture_id":                     order.CaptureID,
			"capture_status":                 order.CaptureStatus,
			"authentication_expiration_time": order.AuthenticationExpirationTime,
			"refunds":                        order.Refunds,
			"version":                        order.Version + 1,
			"updated_at":                     now,
		})
	if res.Error != nil {
		return fmt.Errorf("store: save checkout order %d: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, order.ID); errors.Is(err, ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return ErrStaleRecord
	}
	order.Version++
	order.UpdatedAt = now
	return nil
}

func (r *GormRepository) FindByID(ctx context.Context, id uint) (*CheckoutOrder, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormRepository) FindByOrderID(ctx context.Context, orderID string) (*CheckoutOrder, error) {
	return r.first(ctx, "order_id = ?", orderID)
}

func (r *GormRepository) FindByAuthorizationID(ctx context.Context, authorizationID string) (*CheckoutOrder, error) {
	return r.first(ctx, "authorization_id = ?", authorizationID)
}

func (r *GormRepository) FindByCaptureID(ctx context.Context, captureID string) (*CheckoutOrder, error) {
	return r.first(ctx, "capture_id = ?", captureID)
}

func (r *GormRepository) first(ctx context.Context, query string, arg interface{}) (*CheckoutOrder, error) {
	if s, ok := arg.(string); ok && s == "" {
		return nil, ErrRecordNotFound
	}
	var order CheckoutOrder
	err := r.db.WithContext(ctx).Where(query, arg).Order("id").First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find checkout order: %w", err)
	}
	return &order, nil
}
