package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrRecordNotFound = errors.New("store: checkout order not found")
	// ErrStaleRecord is returned by Save when the record changed since it was read.
	ErrStaleRecord = errors.New("store: checkout order was modified concurrently")
)

// Repository defines how checkout orders are loaded and saved.
// This allows for different implementations (e.g., in-memory, database).
type Repository interface {
	Create(ctx context.Context, order *CheckoutOrder) error
	// Save writes every mutable field of order. It fails with ErrStaleRecord
	// when order.Version no longer matches the stored version.
	Save(ctx context.Context, order *CheckoutOrder) error
	FindByID(ctx context.Context, id uint) (*CheckoutOrder, error)
	FindByOrderID(ctx context.Context, orderID string) (*CheckoutOrder, error)
	FindByAuthorizationID(ctx context.Context, authorizationID string) (*CheckoutOrder, error)
	FindByCaptureID(ctx context.Context, captureID string) (*CheckoutOrder, error)
}

// InMemoryRepository is a simple in-memory implementation for tests and
// single-process deployments.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID uint
	orders map[uint]*CheckoutOrder
	now    func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		orders: make(map[uint]*CheckoutOrder),
		now:    time.Now,
	}
}

func (r *InMemoryRepository) Create(_ context.Context, order *CheckoutOrder) error {
	if order == nil {
		return fmt.Errorf("store: checkout order cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	order.ID = r.nextID
	now := r.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *InMemoryRepository) Save(_ context.Context, order *CheckoutOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[order.ID]
	if !ok {
		return ErrRecordNotFound
	}
	if current.Version != order.Version {
		return ErrStaleRecord
	}
	order.Version++
	order.UpdatedAt = r.now()
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *InMemoryRepository) FindByID(_ context.Context, id uint) (*CheckoutOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if o, ok := r.orders[id]; ok {
		return o.Clone(), nil
	}
	return nil, ErrRecordNotFound
}

func (r *InMemoryRepository) FindByOrderID(_ context.Context, orderID string) (*CheckoutOrder, error) {
	return r.findFirst(func(o *CheckoutOrder) bool { return orderID != "" && o.OrderID == orderID })
}

func (r *InMemoryRepository) FindByAuthorizationID(_ context.Context, authorizationID string) (*CheckoutOrder, error) {
	return r.findFirst(func(o *CheckoutOrder) bool { return authorizationID != "" && o.AuthorizationID == authorizationID })
}

func (r *InMemoryRepository) FindByCaptureID(_ context.Context, captureID string) (*CheckoutOrder, error) {
	return r.findFirst(func(o *CheckoutOrder) bool { return captureID != "" && o.CaptureID == captureID })
}

// findFirst returns the matching order with the lowest id.
func (r *InMemoryRepository) findFirst(match func(*CheckoutOrder) bool) (*CheckoutOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *CheckoutOrder
	for _, o := range r.orders {
		if match(o) && (found == nil || o.ID < found.ID) {
			found = o
		}
	}
	if found == nil {
		return nil, ErrRecordNotFound
	}
	return found.Clone(), nil
}
