package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crosspost-social/crosspost/domain"
	"github.com/crosspost-social/crosspost/internal/provider"
	"github.com/crosspost-social/crosspost/memory"
	"github.com/crosspost-social/crosspost/services"
)

// fakeProvider is a scriptable provider.Provider. Exchange returns a canned
// payload, FetchCredentials counts its calls, Publish records what it was
// asked to post.
type fakeProvider struct {
	mu sync.Mutex

	name            string
	exchangePayload map[string]any
	exchangeErr     error
	creds           *provider.Credentials
	credsErr        error
	publishErr      error

	fetchCalls int
	published  []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthCodeURL(state string) (string, error) {
	return "https://" + f.name + ".example.com/oauth/authorize?state=" + state, nil
}

func (f *fakeProvider) Exchange(_ context.Context, _ string) (map[string]any, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangePayload, nil
}

func (f *fakeProvider) FetchCredentials(_ context.Context, _ string) (*provider.Credentials, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
	if f.credsErr != nil {
		return nil, f.credsErr
	}
	return f.creds, nil
}

func (f *fakeProvider) Publish(_ context.Context, _ *domain.Authorization, content string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	f.published = append(f.published, content)
	f.mu.Unlock()
	return nil
}

func (f *fakeProvider) publishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

// plainHasher keeps password tests fast; bcrypt is covered in internal/auth.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Verify(hash, password string) error {
	if hash != "plain:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

type testEnv struct {
	accounts *memory.AccountRepository
	auths    *memory.AuthorizationRepository
	updates  *memory.StatusUpdateRepository
	sessions *memory.SessionRepository
	twitter  *fakeProvider
	facebook *fakeProvider
	svc      *services.AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		accounts: memory.NewAccountRepository(),
		auths:    memory.NewAuthorizationRepository(),
		updates:  memory.NewStatusUpdateRepository(),
		sessions: memory.NewSessionRepository(),
		twitter: &fakeProvider{
			name:            domain.ProviderTwitter,
			exchangePayload: twitterPayload(),
			creds:           &provider.Credentials{Token: "1234", Secret: "4567", Nickname: "joepublic"},
		},
		facebook: &fakeProvider{
			name:            domain.ProviderFacebook,
			exchangePayload: facebookPayload(),
			creds:           &provider.Credentials{Token: "abcd", Secret: "efgh", Nickname: "jane"},
		},
	}
	registry := provider.NewRegistry(env.twitter, env.facebook)
	env.svc = services.NewAccountService(env.accounts, env.auths, env.sessions, registry, plainHasher{},
		services.AccountServiceOptions{})
	t.Cleanup(env.svc.Stop)
	return env
}

// twitterPayload mirrors what the twitter handshake hands back for the
// canonical test identity.
func twitterPayload() map[string]any {
	return map[string]any{
		"uid": 78654,
		"user_info": map[string]any{
			"name":     "Joe Public",
			"nickname": "joepublic",
			"email":    "joe@example.com",
		},
		"credentials": map[string]any{
			"token":  "1111",
			"secret": "2222",
		},
	}
}

// facebookPayload carries the auto-generated fallback handle facebook emits
// for accounts without a vanity username.
func facebookPayload() map[string]any {
	return map[string]any{
		"uid": "12345",
		"user_info": map[string]any{
			"name":     "Jane Public",
			"nickname": "profile.php?id=12345",
			"email":    "jane@example.com",
		},
		"credentials": map[string]any{
			"token":  "3333",
			"secret": "4444",
		},
	}
}

func (env *testEnv) createAccount(t *testing.T, username, email string) *domain.Account {
	t.Helper()
	now := time.Now().UTC()
	account := &domain.Account{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := env.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func (env *testEnv) linkAuthorization(t *testing.T, accountID, providerName, uid, token, secret, nickname string) *domain.Authorization {
	t.Helper()
	now := time.Now().UTC()
	auth := &domain.Authorization{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Provider:    providerName,
		UID:         uid,
		OAuthToken:  token,
		OAuthSecret: secret,
		Nickname:    nickname,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := env.auths.Create(context.Background(), auth); err != nil {
		t.Fatalf("create authorization: %v", err)
	}
	return auth
}
