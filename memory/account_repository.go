// Package memory holds mutex-guarded in-memory implementations of the
// domain repositories. They back the test suites and the single-node dev
// mode, and enforce the same uniqueness constraints as the MongoDB
// implementations.
package memory

import (
	"context"
	"sync"

	"github.com/crosspost-social/crosspost/domain"
)

// AccountRepository is an in-memory domain.AccountRepository.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account // by id
}

// NewAccountRepository creates an empty in-memory account repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]*domain.Account)}
}

func (r *AccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == account.Username {
			return domain.ErrUsernameTaken
		}
		if account.Email != "" && existing.Email == account.Email {
			return domain.ErrEmailTaken
		}
	}
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (r *AccountRepository) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, account := range r.accounts {
		if account.Username == username {
			cp := *account
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, account := range r.accounts {
		if account.Email != "" && account.Email == email {
			cp := *account
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AccountRepository) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, existing := range r.accounts {
		if id != account.ID && existing.Username == account.Username {
			return domain.ErrUsernameTaken
		}
	}
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *AccountRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

var _ domain.AccountRepository = (*AccountRepository)(nil)
