package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-chat-otp/internal/domain"
	"github.com/go-chat-otp/internal/pkg/id"
)

// UserRepo is an in-process user store for local development and tests.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string // email -> userID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	u := r.byID[userID]
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	created := *u
	created.UserID = id.New()
	r.byID[created.UserID] = created
	r.byEmail[created.Email] = created.UserID
	return &created, nil
}

// Count returns the number of stored users.
func (r *UserRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
