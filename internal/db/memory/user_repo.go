package memory

import (
	"context"
	"sync"

	"Quillpad/internal/core/users"

	"github.com/google/uuid"
)

// UserRepository is a map-backed users.UserRepository
type UserRepository struct {
	byID       map[string]*users.User
	byUsername map[string]string
	clock      *clock
	mu         sync.RWMutex
}

// NewUserRepository creates an empty in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[string]*users.User),
		byUsername: make(map[string]string),
		clock:      newClock(),
	}
}

// Create checks and claims the username under a single lock
func (r *UserRepository) Create(ctx context.Context, user *users.User) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[user.Username]; taken {
		return nil, users.ErrUsernameTaken
	}

	stored := &users.User{
		ID:           uuid.NewString(),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    r.clock.next(),
	}
	r.byID[stored.ID] = stored
	r.byUsername[stored.Username] = stored.ID

	copied := *stored
	return &copied, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	copied := *r.byID[id]
	return &copied, nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}
