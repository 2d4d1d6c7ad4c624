package memory

import (
	"context"
	"sync"

	users "equipment-api/internal/users/domain"
)

// UserRepository is an in-memory repository for user accounts.
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]users.User
}

// NewUserRepository constructs a repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{nextID: 1, byID: make(map[int64]users.User)}
}

// Create stores a new user and assigns its ID.
func (r *UserRepository) Create(ctx context.Context, user *users.User) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	r.byID[user.ID] = *user
	return nil
}

// FindActiveByEmail returns the activated user with the given email, or nil
// when there is none.
func (r *UserRepository) FindActiveByEmail(ctx context.Context, email string) (*users.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.byID {
		if user.Email == email && user.Activated {
			found := user
			return &found, nil
		}
	}
	return nil, nil
}
