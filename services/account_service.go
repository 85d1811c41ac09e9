package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"

	"github.com/crosspost-social/crosspost/domain"
	"github.com/crosspost-social/crosspost/internal/provider"
)

const (
	defaultPendingSignupTTL = 15 * time.Minute
	defaultSessionTTL       = 30 * 24 * time.Hour
)

// RedirectState tells the caller which page the user should land on after a
// provider callback.
type RedirectState string

const (
	RedirectEditProfile     RedirectState = "edit_profile"
	RedirectConfirmAccount  RedirectState = "confirm_account"
	RedirectConfirmUsername RedirectState = "confirm_username"
)

// CallbackOutcome classifies what a provider callback resolved to.
type CallbackOutcome string

const (
	// OutcomeAttachedToCurrent: a session was active and the identity was
	// fresh, so it was linked to the session's account.
	OutcomeAttachedToCurrent CallbackOutcome = "attached_to_current"
	// OutcomeLoggedIntoExisting: the identity was already linked; its owning
	// account is logged in, regardless of any other active session.
	OutcomeLoggedIntoExisting CallbackOutcome = "logged_into_existing"
	// OutcomeNewAccountPending: no session and a fresh identity; account
	// creation is deferred until CompleteSignup.
	OutcomeNewAccountPending CallbackOutcome = "new_account_pending"
	// OutcomeSignupCompleted: CompleteSignup created the account and its
	// first authorization.
	OutcomeSignupCompleted CallbackOutcome = "signup_completed"
)

// CallbackResult is the outcome of a provider callback or signup completion.
type CallbackResult struct {
	Outcome  CallbackOutcome
	Account  *domain.Account
	Session  *domain.Session
	Redirect RedirectState

	// ContinuationToken references the stashed identity while signup
	// confirmation is pending.
	ContinuationToken string
	// ProposedUsername pre-fills the confirmation form. Empty or malformed
	// proposals force the ConfirmUsername state.
	ProposedUsername string
	// EmailRequired is set when the provider supplied no email address.
	EmailRequired bool
}

// AccountServiceOptions tunes the account service. Zero values fall back to
// defaults.
type AccountServiceOptions struct {
	PendingSignupTTL time.Duration
	SessionTTL       time.Duration
}

// AccountService implements authentication, account linking, username
// resolution and credential migration. Session state is always threaded in
// explicitly; there is no ambient current-user.
type AccountService struct {
	accounts  domain.AccountRepository
	auths     domain.AuthorizationRepository
	sessions  domain.SessionRepository
	providers *provider.Registry
	hasher    PasswordHasher

	pending    *ttlcache.Cache[string, *domain.ProviderIdentity]
	sessionTTL time.Duration

	// signupMu serializes account-plus-first-authorization creation so that
	// concurrent callbacks for the same (provider, uid) cannot both create.
	signupMu sync.Mutex
}

// NewAccountService creates an AccountService.
func NewAccountService(
	accounts domain.AccountRepository,
	auths domain.AuthorizationRepository,
	sessions domain.SessionRepository,
	providers *provider.Registry,
	hasher PasswordHasher,
	opts AccountServiceOptions,
) *AccountService {
	if opts.PendingSignupTTL <= 0 {
		opts.PendingSignupTTL = defaultPendingSignupTTL
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	pending := ttlcache.New(
		ttlcache.WithTTL[string, *domain.ProviderIdentity](opts.PendingSignupTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.ProviderIdentity](),
	)
	go pending.Start()

	return &AccountService{
		accounts:   accounts,
		auths:      auths,
		sessions:   sessions,
		providers:  providers,
		hasher:     hasher,
		pending:    pending,
		sessionTTL: opts.SessionTTL,
	}
}

// Stop shuts down the pending-signup cache. Call on server shutdown.
func (s *AccountService) Stop() {
	s.pending.Stop()
}

// HandleProviderLogin completes the OAuth handshake for an authorization code
// and feeds the resulting payload through HandleProviderCallback.
func (s *AccountService) HandleProviderLogin(ctx context.Context, providerName, code, sessionAccountID string) (*CallbackResult, error) {
	p, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}
	payload, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.HandleProviderCallback(ctx, providerName, payload, sessionAccountID)
}

// HandleProviderCallback matches a provider callback payload against local
// state and decides between attaching to the current account, logging into
// the identity's owning account, or deferring to signup confirmation.
//
// An identity match on (provider, uid) always wins over the active session:
// a callback for an identity linked elsewhere logs the user into that
// identity's account.
func (s *AccountService) HandleProviderCallback(ctx context.Context, providerName string, payload map[string]any, sessionAccountID string) (*CallbackResult, error) {
	identity, err := provider.ResolveIdentity(providerName, payload)
	if err != nil {
		return nil, err
	}

	existing, err := s.auths.GetByProviderUID(ctx, providerName, identity.UID)
	switch {
	case err == nil:
		return s.loginLinked(ctx, existing, identity)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	if sessionAccountID != "" {
		return s.attachToCurrent(ctx, identity, sessionAccountID)
	}
	return s.beginSignup(ctx, identity)
}

// loginLinked establishes a session for the account owning an already-linked
// identity, refreshing stored credentials from the callback on the way.
func (s *AccountService) loginLinked(ctx context.Context, auth *domain.Authorization, identity *domain.ProviderIdentity) (*CallbackResult, error) {
	if s.refreshCredentials(auth, identity) {
		if err := s.auths.Update(ctx, auth); err != nil {
			log.Warn().Err(err).Str("provider", auth.Provider).Str("uid", auth.UID).
				Msg("Failed to refresh authorization credentials on login")
		}
	}

	account, err := s.accounts.GetByID(ctx, auth.AccountID)
	if err != nil {
		return nil, err
	}
	session, err := s.startSession(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &CallbackResult{
		Outcome:  OutcomeLoggedIntoExisting,
		Account:  account,
		Session:  session,
		Redirect: RedirectEditProfile,
	}, nil
}

// attachToCurrent links a fresh identity to the session's account.
func (s *AccountService) attachToCurrent(ctx context.Context, identity *domain.ProviderIdentity, sessionAccountID string) (*CallbackResult, error) {
	account, err := s.accounts.GetByID(ctx, sessionAccountID)
	if err != nil {
		return nil, err
	}

	auth := s.newAuthorization(account.ID, identity)
	if err := s.auths.Create(ctx, auth); err != nil {
		if errors.Is(err, domain.ErrDuplicateLink) {
			// Lost a race: the identity got linked elsewhere between lookup
			// and create. The identity is authoritative, log into its owner.
			if existing, lookupErr := s.auths.GetByProviderUID(ctx, identity.Provider, identity.UID); lookupErr == nil {
				return s.loginLinked(ctx, existing, identity)
			}
			return nil, err
		}
		return nil, err
	}

	session, err := s.startSession(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("account_id", account.ID).Str("provider", identity.Provider).
		Str("uid", identity.UID).Msg("Linked provider to account")
	return &CallbackResult{
		Outcome:  OutcomeAttachedToCurrent,
		Account:  account,
		Session:  session,
		Redirect: RedirectEditProfile,
	}, nil
}

// beginSignup stashes a fresh identity under a continuation token and tells
// the caller which confirmation page to show. Account creation is deferred
// until CompleteSignup.
func (s *AccountService) beginSignup(ctx context.Context, identity *domain.ProviderIdentity) (*CallbackResult, error) {
	token := uuid.NewString()
	s.pending.Set(token, identity, ttlcache.DefaultTTL)

	redirect := RedirectConfirmAccount
	if !s.usernameAvailable(ctx, identity.Nickname) {
		redirect = RedirectConfirmUsername
	}

	return &CallbackResult{
		Outcome:           OutcomeNewAccountPending,
		Redirect:          redirect,
		ContinuationToken: token,
		ProposedUsername:  identity.Nickname,
		EmailRequired:     identity.Email == "",
	}, nil
}

// CompleteSignup finishes a pending provider signup. An empty username or
// email falls back to what the provider proposed; the username is validated
// for format and uniqueness and a rejection leaves the pending signup in
// place so the caller can prompt for another candidate. On success the
// account and its first authorization are created atomically: either both
// exist afterwards or neither does.
func (s *AccountService) CompleteSignup(ctx context.Context, token, username, email string) (*CallbackResult, error) {
	item := s.pending.Get(token)
	if item == nil {
		return nil, ErrPendingSignupExpired
	}
	identity := item.Value()

	if username == "" {
		username = identity.Nickname
	}
	if email == "" {
		email = identity.Email
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if owner, err := s.accounts.GetByUsername(ctx, username); err == nil && owner != nil {
		return nil, domain.ErrUsernameTaken
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if email == "" {
		return nil, ErrEmailRequired
	}

	s.signupMu.Lock()
	defer s.signupMu.Unlock()

	// A concurrent callback for the same identity may have finished first;
	// observe its result instead of creating a second account.
	if existing, err := s.auths.GetByProviderUID(ctx, identity.Provider, identity.UID); err == nil {
		s.pending.Delete(token)
		return s.loginLinked(ctx, existing, identity)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	auth := s.newAuthorization(account.ID, identity)
	if err := s.auths.Create(ctx, auth); err != nil {
		// No account without its first authorization: roll the account back.
		if delErr := s.accounts.Delete(ctx, account.ID); delErr != nil {
			log.Error().Err(delErr).Str("account_id", account.ID).
				Msg("Failed to roll back account after authorization create failure")
		}
		if errors.Is(err, domain.ErrDuplicateLink) {
			if existing, lookupErr := s.auths.GetByProviderUID(ctx, identity.Provider, identity.UID); lookupErr == nil {
				s.pending.Delete(token)
				return s.loginLinked(ctx, existing, identity)
			}
		}
		return nil, err
	}
	s.pending.Delete(token)

	session, err := s.startSession(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("account_id", account.ID).Str("username", account.Username).
		Str("provider", identity.Provider).Msg("Account created via provider signup")
	return &CallbackResult{
		Outcome:  OutcomeSignupCompleted,
		Account:  account,
		Session:  session,
		Redirect: RedirectEditProfile,
	}, nil
}

// SetUsername validates and applies a username change. Re-submitting the
// account's own username is a no-op success; a username owned by a different
// account is rejected with ErrUsernameTaken.
func (s *AccountService) SetUsername(ctx context.Context, accountID, candidate string) error {
	if err := ValidateUsername(candidate); err != nil {
		return err
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	owner, err := s.accounts.GetByUsername(ctx, candidate)
	switch {
	case err == nil && owner.ID == accountID:
		return nil
	case err == nil:
		return domain.ErrUsernameTaken
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	account.Username = candidate
	account.UpdatedAt = time.Now().UTC()
	return s.accounts.Update(ctx, account)
}

// RemoveAuthorization unlinks a provider from an account. Removing an absent
// link is a no-op; the account and its other links are untouched.
func (s *AccountService) RemoveAuthorization(ctx context.Context, accountID, providerName string) error {
	return s.auths.Delete(ctx, accountID, providerName)
}

// ListAuthorizations returns the account's provider links, migrating legacy
// records on the way out.
func (s *AccountService) ListAuthorizations(ctx context.Context, accountID string) ([]*domain.Authorization, error) {
	auths, err := s.auths.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, a := range auths {
		s.EnsureMigrated(ctx, a)
	}
	return auths, nil
}

// EnsureMigrated backfills token, secret and nickname on authorization
// records persisted in the pre-credential schema. Already-populated records
// are returned untouched with no provider call; a failed backfill fetch is
// logged and swallowed, leaving the record usable as-is.
func (s *AccountService) EnsureMigrated(ctx context.Context, auth *domain.Authorization) *domain.Authorization {
	if auth.Migrated() {
		return auth
	}

	p, err := s.providers.Get(auth.Provider)
	if err != nil {
		log.Warn().Str("provider", auth.Provider).Msg("Cannot migrate authorization: provider not registered")
		return auth
	}
	creds, err := p.FetchCredentials(ctx, auth.UID)
	if err != nil {
		log.Warn().Err(err).Str("provider", auth.Provider).Str("uid", auth.UID).
			Msg("Credential backfill fetch failed, keeping stale authorization")
		return auth
	}

	if auth.OAuthToken == "" {
		auth.OAuthToken = creds.Token
	}
	if auth.OAuthSecret == "" {
		auth.OAuthSecret = creds.Secret
	}
	if auth.Nickname == "" {
		auth.Nickname = creds.Nickname
	}
	if auth.Nickname == "" {
		// Providers that expose no handle fall back to the local username.
		if account, accErr := s.accounts.GetByID(ctx, auth.AccountID); accErr == nil {
			auth.Nickname = account.Username
		}
	}
	auth.UpdatedAt = time.Now().UTC()

	if err := s.auths.Update(ctx, auth); err != nil {
		log.Warn().Err(err).Str("provider", auth.Provider).Str("uid", auth.UID).
			Msg("Failed to persist migrated authorization")
	}
	return auth
}

// RegisterWithEmail creates an account with a password and no provider links.
func (s *AccountService) RegisterWithEmail(ctx context.Context, username, email, password string) (*domain.Account, *domain.Session, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, nil, err
	}
	if email == "" {
		return nil, nil, ErrEmailRequired
	}
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return nil, nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, nil, err
	}

	session, err := s.startSession(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}
	return account, session, nil
}

// AuthenticateEmail logs a user in by email and password.
func (s *AccountService) AuthenticateEmail(ctx context.Context, email, password string) (*domain.Account, *domain.Session, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if account.PasswordHash == "" || s.hasher.Verify(account.PasswordHash, password) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.startSession(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}
	return account, session, nil
}

// ResolveSession returns the account bound to a live session.
func (s *AccountService) ResolveSession(ctx context.Context, sessionID string) (*domain.Account, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return s.accounts.GetByID(ctx, session.AccountID)
}

// Logout drops a session.
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// GetAccount loads an account by id.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// AuthCodeURL builds the external handshake URL for a provider.
func (s *AccountService) AuthCodeURL(providerName, state string) (string, error) {
	p, err := s.providers.Get(providerName)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(state)
}

func (s *AccountService) usernameAvailable(ctx context.Context, candidate string) bool {
	if ValidateUsername(candidate) != nil {
		return false
	}
	_, err := s.accounts.GetByUsername(ctx, candidate)
	return errors.Is(err, domain.ErrNotFound)
}

func (s *AccountService) refreshCredentials(auth *domain.Authorization, identity *domain.ProviderIdentity) bool {
	changed := false
	if identity.Token != "" && identity.Token != auth.OAuthToken {
		auth.OAuthToken = identity.Token
		changed = true
	}
	if identity.Secret != "" && identity.Secret != auth.OAuthSecret {
		auth.OAuthSecret = identity.Secret
		changed = true
	}
	if identity.Nickname != "" && auth.Nickname == "" {
		auth.Nickname = identity.Nickname
		changed = true
	}
	if changed {
		auth.UpdatedAt = time.Now().UTC()
	}
	return changed
}

func (s *AccountService) newAuthorization(accountID string, identity *domain.ProviderIdentity) *domain.Authorization {
	now := time.Now().UTC()
	return &domain.Authorization{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Provider:    identity.Provider,
		UID:         identity.UID,
		OAuthToken:  identity.Token,
		OAuthSecret: identity.Secret,
		Nickname:    identity.Nickname,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *AccountService) startSession(ctx context.Context, accountID string) (*domain.Session, error) {
	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Store(ctx, session, s.sessionTTL); err != nil {
		return nil, err
	}
	return session, nil
}
