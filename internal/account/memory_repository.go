package account

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryRepository builds an in-memory account store for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[account.UID]; exists {
		return ErrAccountExists
	}
	r.accounts[account.UID] = clone(account)
	return nil
}

func (r *memoryRepository) Get(_ context.Context, uid string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[uid]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return clone(account), nil
}

func (r *memoryRepository) SetPin(_ context.Context, uid string, hash []byte, createdAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[uid]
	if !ok {
		return ErrAccountNotFound
	}
	if account.HasPin {
		return ErrPinAlreadySet
	}
	at := createdAt.UTC()
	account.HasPin = true
	account.PinHash = append([]byte(nil), hash...)
	account.PinCreatedAt = &at
	r.accounts[uid] = account
	return nil
}

// clone keeps callers from mutating stored hashes through shared slices.
func clone(a Account) Account {
	if a.PinHash != nil {
		a.PinHash = append([]byte(nil), a.PinHash...)
	}
	if a.PinCreatedAt != nil {
		t := *a.PinCreatedAt
		a.PinCreatedAt = &t
	}
	return a
}
