package domain

import (
	"context"
	"time"
)

// AccountRepository defines access to local accounts. Implementations must
// enforce username uniqueness on create and update.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id string) error
}

// AuthorizationRepository defines access to provider links. Implementations
// must enforce uniqueness on (provider, uid) and on (account_id, provider),
// serializing concurrent creates rather than silently racing.
type AuthorizationRepository interface {
	Create(ctx context.Context, auth *Authorization) error
	GetByProviderUID(ctx context.Context, provider, uid string) (*Authorization, error)
	GetByAccountAndProvider(ctx context.Context, accountID, provider string) (*Authorization, error)
	ListByAccount(ctx context.Context, accountID string) ([]*Authorization, error)
	Update(ctx context.Context, auth *Authorization) error
	// Delete unlinks a provider from an account. Removing an absent link is a
	// no-op success; the owning account is never touched.
	Delete(ctx context.Context, accountID, provider string) error
}

// StatusUpdateRepository defines access to posted status updates.
type StatusUpdateRepository interface {
	Create(ctx context.Context, update *StatusUpdate) error
	Update(ctx context.Context, update *StatusUpdate) error
	GetByID(ctx context.Context, id string) (*StatusUpdate, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*StatusUpdate, error)
}

// SessionRepository defines access to login sessions.
type SessionRepository interface {
	Store(ctx context.Context, session *Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
