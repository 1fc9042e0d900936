package product

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid"
)

// MemoryRepository is the in-process catalog used by the memory storage driver.
// It also acts as the order inventory: stock changes happen under the same lock as reads.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[uuid.UUID]Product
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		products: make(map[uuid.UUID]Product),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]Product, error) {
	return f.Apply(r.All()), nil
}

// All returns a copy of every product in no particular order.
func (r *MemoryRepository) All() []Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, clone(p))
	}
	return out
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	c := clone(p)
	return &c, nil
}

func (r *MemoryRepository) GetBySlug(_ context.Context, slug string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.Slug == slug {
			c := clone(p)
			return &c, nil
		}
	}
	return nil, ErrProductNotFound
}

func (r *MemoryRepository) Create(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slugTakenLocked(p.Slug, uuid.Nil) {
		return ErrSlugExists
	}

	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		p.ID = id
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	p.UpdatedAt = p.CreatedAt

	r.products[p.ID] = clone(*p)
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[p.ID]
	if !ok {
		return ErrProductNotFound
	}
	if r.slugTakenLocked(p.Slug, p.ID) {
		return ErrSlugExists
	}

	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.now()
	r.products[p.ID] = clone(*p)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *MemoryRepository) ProductExists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.products[id]
	return ok, nil
}

// DecrementStock removes qty units, refusing to go below zero.
func (r *MemoryRepository) DecrementStock(_ context.Context, id uuid.UUID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}
	if p.Stock < qty {
		return fmt.Errorf("%w: %q has %d, requested %d", ErrInsufficientStock, p.Name, p.Stock, qty)
	}
	p.Stock -= qty
	r.products[id] = p
	return nil
}

func (r *MemoryRepository) IncrementStock(_ context.Context, id uuid.UUID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock += qty
	r.products[id] = p
	return nil
}

func (r *MemoryRepository) slugTakenLocked(slug string, except uuid.UUID) bool {
	for id, p := range r.products {
		if p.Slug == slug && id != except {
			return true
		}
	}
	return false
}

func clone(p Product) Product {
	p.Images = slices.Clone(p.Images)
	p.Sizes = slices.Clone(p.Sizes)
	p.Colors = slices.Clone(p.Colors)
	p.Tags = slices.Clone(p.Tags)
	p.Reviews = slices.Clone(p.Reviews)
	return p
}
