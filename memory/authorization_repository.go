package memory

import (
	"context"
	"sync"

	"github.com/crosspost-social/crosspost/domain"
)

// AuthorizationRepository is an in-memory domain.AuthorizationRepository.
// Creates are serialized under one lock, so a concurrent duplicate
// (provider, uid) insert is rejected rather than racing.
type AuthorizationRepository struct {
	mu    sync.RWMutex
	auths map[string]*domain.Authorization // by id
}

// NewAuthorizationRepository creates an empty in-memory authorization
// repository.
func NewAuthorizationRepository() *AuthorizationRepository {
	return &AuthorizationRepository{auths: make(map[string]*domain.Authorization)}
}

func (r *AuthorizationRepository) Create(_ context.Context, auth *domain.Authorization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.auths {
		if existing.Provider == auth.Provider && existing.UID == auth.UID {
			return domain.ErrDuplicateLink
		}
		if existing.Provider == auth.Provider && existing.AccountID == auth.AccountID {
			return domain.ErrDuplicateLink
		}
	}
	cp := *auth
	r.auths[auth.ID] = &cp
	return nil
}

func (r *AuthorizationRepository) GetByProviderUID(_ context.Context, provider, uid string) (*domain.Authorization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, auth := range r.auths {
		if auth.Provider == provider && auth.UID == uid {
			cp := *auth
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AuthorizationRepository) GetByAccountAndProvider(_ context.Context, accountID, provider string) (*domain.Authorization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, auth := range r.auths {
		if auth.AccountID == accountID && auth.Provider == provider {
			cp := *auth
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *AuthorizationRepository) ListByAccount(_ context.Context, accountID string) ([]*domain.Authorization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Authorization
	for _, auth := range r.auths {
		if auth.AccountID == accountID {
			cp := *auth
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *AuthorizationRepository) Update(_ context.Context, auth *domain.Authorization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auths[auth.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *auth
	r.auths[auth.ID] = &cp
	return nil
}

// Delete removes the account's link for a provider. Removing an absent link
// is a no-op success.
func (r *AuthorizationRepository) Delete(_ context.Context, accountID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, auth := range r.auths {
		if auth.AccountID == accountID && auth.Provider == provider {
			delete(r.auths, id)
			return nil
		}
	}
	return nil
}

var _ domain.AuthorizationRepository = (*AuthorizationRepository)(nil)
