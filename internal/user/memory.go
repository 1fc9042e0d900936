package user

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
)

// MemoryRepository keeps users in process memory. Used by the memory storage driver and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]User
	byEmail map[string]uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[uuid.UUID]User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) Create(_ context.Context, user *User) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.createLocked(user)
}

func (r *MemoryRepository) createLocked(user *User) (uuid.UUID, error) {
	email := strings.ToLower(user.Email)
	if _, ok := r.byEmail[email]; ok {
		return uuid.Nil, ErrEmailExists
	}

	if user.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate user ID: %w", err)
		}
		user.ID = id
	}

	now := time.Now().UTC()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = *user
	r.byEmail[email] = user.ID

	return user.ID, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &u, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}

	u := r.byID[id]
	return &u, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byEmail[strings.ToLower(user.Email)]; ok {
		u := r.byID[id]
		return &u, nil
	}

	if _, err := r.createLocked(user); err != nil {
		return nil, err
	}

	return user, nil
}

// Count returns the number of stored users.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}
