package user

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User // keyed by phone number
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.PhoneNumber]; exists {
		return ErrDuplicate
	}
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.WalletAddress == user.WalletAddress {
			return ErrDuplicate
		}
	}
	r.users[user.PhoneNumber] = user
	return nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[phone]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindActiveByUsernameOrPhone(_ context.Context, identifier string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if !user.Active {
			continue
		}
		if user.Username == identifier || user.PhoneNumber == identifier {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryRepository) UsernameTaken(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepository) SetActive(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for phone, user := range r.users {
		if user.ID == id {
			user.Active = true
			r.users[phone] = user
			return nil
		}
	}
	return ErrNotFound
}
