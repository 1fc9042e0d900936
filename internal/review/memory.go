package review

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/user"
)

type reviewKey struct {
	productID uuid.UUID
	userID    uuid.UUID
}

// MemoryRepository stores reviews in process memory, unique per (product, user).
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]Review
	byKey map[reviewKey]uuid.UUID
	users user.Repository
	now   func() time.Time
}

// NewMemoryRepository resolves reviewer names through users when it is not nil.
func NewMemoryRepository(users user.Repository) *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[uuid.UUID]Review),
		byKey: make(map[reviewKey]uuid.UUID),
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) Upsert(_ context.Context, rv *Review) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := reviewKey{productID: rv.ProductID, userID: rv.UserID}

	if id, ok := r.byKey[key]; ok {
		existing := r.byID[id]
		existing.Rating = rv.Rating
		existing.Comment = rv.Comment
		existing.UpdatedAt = now
		r.byID[id] = existing

		rv.ID = existing.ID
		rv.CreatedAt = existing.CreatedAt
		rv.UpdatedAt = now
		return false, nil
	}

	id, err := uuid.NewV4()
	if err != nil {
		return false, fmt.Errorf("repository: failed to generate review ID: %w", err)
	}
	rv.ID = id
	rv.CreatedAt = now
	rv.UpdatedAt = now

	stored := *rv
	stored.UserName = ""
	r.byID[id] = stored
	r.byKey[key] = id
	return true, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	r.mu.RLock()
	rv, ok := r.byID[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrReviewNotFound
	}
	r.withName(ctx, &rv)
	return &rv, nil
}

func (r *MemoryRepository) List(ctx context.Context, productID *uuid.UUID) ([]Review, error) {
	r.mu.RLock()
	out := make([]Review, 0, len(r.byID))
	for _, rv := range r.byID {
		if productID == nil || rv.ProductID == *productID {
			out = append(out, rv)
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	for i := range out {
		r.withName(ctx, &out[i])
	}
	return out, nil
}

func (r *MemoryRepository) ListByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]Review, error) {
	wanted := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}

	all, err := r.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]Review, len(productIDs))
	for _, rv := range all {
		if _, ok := wanted[rv.ProductID]; ok {
			out[rv.ProductID] = append(out[rv.ProductID], rv)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv, ok := r.byID[id]
	if !ok {
		return ErrReviewNotFound
	}
	delete(r.byID, id)
	delete(r.byKey, reviewKey{productID: rv.ProductID, userID: rv.UserID})
	return nil
}

// Count returns the number of stored reviews.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *MemoryRepository) withName(ctx context.Context, rv *Review) {
	if r.users == nil {
		return
	}
	if u, err := r.users.GetByID(ctx, rv.UserID); err == nil {
		rv.UserName = u.Name
	}
}

func sortNewestFirst(reviews []Review) {
	sort.Slice(reviews, func(i, j int) bool {
		if !reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
		}
		return reviews[i].ID.String() < reviews[j].ID.String()
	})
}
