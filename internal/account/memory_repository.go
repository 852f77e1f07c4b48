package account

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Account
	cards   map[string]string
}

// NewMemoryRepository constructs an in-memory account repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		storage: make(map[string]Account),
		cards:   make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[acct.Number]; exists {
		return ErrExists
	}
	if _, exists := r.cards[acct.CardNumber]; exists {
		return ErrExists
	}
	r.storage[acct.Number] = acct
	r.cards[acct.CardNumber] = acct.Number
	return nil
}

func (r *memoryRepository) Get(_ context.Context, number string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.storage[number]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (r *memoryRepository) Delete(_ context.Context, number string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.storage[number]
	if !ok {
		return ErrNotFound
	}
	delete(r.cards, acct.CardNumber)
	delete(r.storage, number)
	return nil
}
