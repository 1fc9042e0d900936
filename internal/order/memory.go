package order

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// Inventory adjusts product stock for the memory driver.
type Inventory interface {
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error
	IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error
}

// MemoryRepository keeps orders in process memory. Stock is taken through Inventory
// and handed back if any item of the order cannot be fulfilled.
type MemoryRepository struct {
	mu        sync.RWMutex
	orders    map[uuid.UUID]Order
	inventory Inventory
	now       func() time.Time
}

func NewMemoryRepository(inventory Inventory) *MemoryRepository {
	return &MemoryRepository{
		orders:    make(map[uuid.UUID]Order),
		inventory: inventory,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) CreateOrder(ctx context.Context, o *Order) error {
	if o.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
		o.ID = id
	}

	taken := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		if err := r.inventory.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			r.restock(ctx, o.ID, taken)
			return err
		}
		taken = append(taken, item)
	}

	now := r.now()
	o.CreatedAt = now
	o.UpdatedAt = now

	r.mu.Lock()
	r.orders[o.ID] = cloneOrder(*o)
	r.mu.Unlock()

	return nil
}

func (r *MemoryRepository) restock(ctx context.Context, orderID uuid.UUID, items []OrderItem) {
	for i := len(items) - 1; i >= 0; i-- {
		if err := r.inventory.IncrementStock(ctx, items[i].ProductID, items[i].Quantity); err != nil {
			log.Error().Err(err).
				Stringer("order_id_attempted", orderID).
				Stringer("product_id", items[i].ProductID).
				Msg("repository: failed to restore stock after rejected order")
		}
	}
}

func (r *MemoryRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	c := cloneOrder(o)
	return &c, nil
}

func (r *MemoryRepository) ListOrders(_ context.Context, f ListFilter) ([]Order, error) {
	r.mu.RLock()
	out := make([]Order, 0)
	for _, o := range r.orders {
		if f.Match(o) {
			out = append(out, cloneOrder(o))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *MemoryRepository) UpdateOrderStatus(_ context.Context, orderID uuid.UUID, from, newStatus OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != from {
		return fmt.Errorf("%w: order %s is no longer %s", ErrInvalidStatusTransition, orderID, from)
	}
	o.Status = newStatus
	o.UpdatedAt = r.now()
	r.orders[orderID] = o
	return nil
}

func cloneOrder(o Order) Order {
	o.Items = slices.Clone(o.Items)
	return o
}
