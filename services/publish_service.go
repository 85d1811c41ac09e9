package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crosspost-social/crosspost/domain"
	"github.com/crosspost-social/crosspost/internal/provider"
)

const defaultPublishTimeout = 10 * time.Second

// PublishService fans a status update out to the providers the author opted
// into. Providers are independent: one provider failing, timing out or not
// being linked never affects another, and never blocks local creation.
type PublishService struct {
	updates   domain.StatusUpdateRepository
	auths     domain.AuthorizationRepository
	providers *provider.Registry
	timeout   time.Duration
}

// NewPublishService creates a PublishService. timeout bounds each outbound
// publish call; zero falls back to the default.
func NewPublishService(
	updates domain.StatusUpdateRepository,
	auths domain.AuthorizationRepository,
	providers *provider.Registry,
	timeout time.Duration,
) *PublishService {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &PublishService{
		updates:   updates,
		auths:     auths,
		providers: providers,
		timeout:   timeout,
	}
}

// SubmitStatusUpdate persists a status update and then publishes it to every
// opted-in provider the account has linked. The update is created before any
// provider is contacted; per-provider outcomes are recorded on the update's
// outcome log. A provider that was not opted in, or not linked, is never
// invoked and stays at "not-attempted".
func (s *PublishService) SubmitStatusUpdate(ctx context.Context, accountID, content string, optIns []string) (*domain.StatusUpdate, error) {
	update := &domain.StatusUpdate{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Content:   content,
		Outcomes:  make(map[string]domain.PublishOutcome, len(s.providers.Names())),
		CreatedAt: time.Now().UTC(),
	}
	for _, name := range s.providers.Names() {
		update.Outcomes[name] = domain.PublishNotAttempted
	}
	if err := s.updates.Create(ctx, update); err != nil {
		return nil, err
	}

	opted := make(map[string]bool, len(optIns))
	for _, name := range optIns {
		opted[name] = true
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, name := range s.providers.Names() {
		if !opted[name] {
			continue
		}
		auth, err := s.auths.GetByAccountAndProvider(ctx, accountID, name)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				log.Warn().Err(err).Str("provider", name).Str("account_id", accountID).
					Msg("Authorization lookup failed during fan-out")
			}
			continue
		}
		p, err := s.providers.Get(name)
		if err != nil {
			continue
		}

		wg.Add(1)
		go func(name string, p provider.Provider, auth *domain.Authorization) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			outcome := domain.PublishSuccess
			if err := p.Publish(callCtx, auth, content); err != nil {
				outcome = domain.PublishFailure
				log.Warn().Err(err).Str("provider", name).Str("status_id", update.ID).
					Msg("Provider publish failed")
			}
			mu.Lock()
			update.Outcomes[name] = outcome
			mu.Unlock()
		}(name, p, auth)
	}
	wg.Wait()

	// The outcome log is bookkeeping; a failure to persist it does not undo
	// the already-created update.
	if err := s.updates.Update(ctx, update); err != nil {
		log.Error().Err(err).Str("status_id", update.ID).Msg("Failed to persist publish outcomes")
	}
	return update, nil
}

// ListStatusUpdates returns the account's recent updates, newest first.
func (s *PublishService) ListStatusUpdates(ctx context.Context, accountID string, limit int) ([]*domain.StatusUpdate, error) {
	return s.updates.ListByAccount(ctx, accountID, limit)
}
