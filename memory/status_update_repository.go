package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/crosspost-social/crosspost/domain"
)

// StatusUpdateRepository is an in-memory domain.StatusUpdateRepository.
type StatusUpdateRepository struct {
	mu      sync.RWMutex
	updates map[string]*domain.StatusUpdate // by id
}

// NewStatusUpdateRepository creates an empty in-memory status update
// repository.
func NewStatusUpdateRepository() *StatusUpdateRepository {
	return &StatusUpdateRepository{updates: make(map[string]*domain.StatusUpdate)}
}

func (r *StatusUpdateRepository) Create(_ context.Context, update *domain.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[update.ID] = cloneUpdate(update)
	return nil
}

func (r *StatusUpdateRepository) Update(_ context.Context, update *domain.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.updates[update.ID]; !ok {
		return domain.ErrNotFound
	}
	r.updates[update.ID] = cloneUpdate(update)
	return nil
}

func (r *StatusUpdateRepository) GetByID(_ context.Context, id string) (*domain.StatusUpdate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	update, ok := r.updates[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUpdate(update), nil
}

func (r *StatusUpdateRepository) ListByAccount(_ context.Context, accountID string, limit int) ([]*domain.StatusUpdate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.StatusUpdate
	for _, update := range r.updates {
		if update.AccountID == accountID {
			out = append(out, cloneUpdate(update))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneUpdate(update *domain.StatusUpdate) *domain.StatusUpdate {
	cp := *update
	cp.Outcomes = make(map[string]domain.PublishOutcome, len(update.Outcomes))
	for k, v := range update.Outcomes {
		cp.Outcomes[k] = v
	}
	return &cp
}

var _ domain.StatusUpdateRepository = (*StatusUpdateRepository)(nil)
