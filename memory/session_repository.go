package memory

import (
	"context"
	"sync"
	"time"

	"github.com/crosspost-social/crosspost/domain"
)

// SessionRepository is an in-memory domain.SessionRepository. Expiry is
// checked on read; there is no background sweeper.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewSessionRepository creates an empty in-memory session repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*domain.Session)}
}

func (r *SessionRepository) Store(_ context.Context, session *domain.Session, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *SessionRepository) Get(_ context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, domain.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

var _ domain.SessionRepository = (*SessionRepository)(nil)
