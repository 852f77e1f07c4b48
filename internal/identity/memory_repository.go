package identity

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu         sync.RWMutex
	byUsername map[string]*Client
	byID       map[string]*Client
}

// NewMemoryRepository builds an in-memory client store.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byUsername: make(map[string]*Client),
		byID:       make(map[string]*Client),
	}
}

func (r *memoryRepository) Create(_ context.Context, client Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUsername[client.Username]; exists {
		return ErrUsernameTaken
	}
	stored := clone(client)
	r.byUsername[client.Username] = &stored
	r.byID[client.ID] = &stored
	return nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.byUsername[username]
	if !ok {
		return Client{}, ErrNotFound
	}
	return clone(*client), nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.byID[id]
	if !ok {
		return Client{}, ErrNotFound
	}
	return clone(*client), nil
}

func (r *memoryRepository) AttachAccount(_ context.Context, clientID, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.byID[clientID]
	if !ok {
		return ErrNotFound
	}
	client.AccountIDs = append(client.AccountIDs, accountID)
	return nil
}

func (r *memoryRepository) List(_ context.Context) ([]Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(r.byID))
	for _, client := range r.byID {
		out = append(out, clone(*client))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// clone copies the slices so callers never alias stored state.
func clone(c Client) Client {
	c.AccountIDs = append([]string(nil), c.AccountIDs...)
	c.PasswordHash = append([]byte(nil), c.PasswordHash...)
	return c
}
