package echo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-social/crosspost/domain"
	"github.com/crosspost-social/crosspost/internal/provider"
	"github.com/crosspost-social/crosspost/memory"
	"github.com/crosspost-social/crosspost/services"
)

type scriptedProvider struct {
	name    string
	payload map[string]any
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) AuthCodeURL(state string) (string, error) {
	return "https://" + p.name + ".example.com/authorize?state=" + state, nil
}

func (p *scriptedProvider) Exchange(context.Context, string) (map[string]any, error) {
	return p.payload, nil
}

func (p *scriptedProvider) FetchCredentials(context.Context, string) (*provider.Credentials, error) {
	return &provider.Credentials{}, nil
}

func (p *scriptedProvider) Publish(context.Context, *domain.Authorization, string) error {
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Verify(hash, password string) error {
	if hash != "plain:"+password {
		return services.ErrInvalidCredentials
	}
	return nil
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	twitter := &scriptedProvider{
		name: domain.ProviderTwitter,
		payload: map[string]any{
			"uid": "78654",
			"user_info": map[string]any{
				"name":     "Joe Public",
				"nickname": "joepublic",
				"email":    "joe@example.com",
			},
			"credentials": map[string]any{"token": "1111", "secret": "2222"},
		},
	}
	registry := provider.NewRegistry(twitter)

	accountService := services.NewAccountService(
		memory.NewAccountRepository(),
		memory.NewAuthorizationRepository(),
		memory.NewSessionRepository(),
		registry,
		plainHasher{},
		services.AccountServiceOptions{},
	)
	t.Cleanup(accountService.Stop)
	publishService := services.NewPublishService(
		memory.NewStatusUpdateRepository(),
		memory.NewAuthorizationRepository(),
		registry,
		0,
	)

	e := echo.New()
	NewCrosspostAPI(accountService, publishService).RegisterRoutes(e)
	return e
}

func doJSON(e *echo.Echo, method, path, body, session string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestProviderLoginRedirects(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/auth/twitter?state=abc", "", "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "twitter.example.com/authorize")
}

func TestProviderLoginUnknownProvider(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/auth/myspace", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProviderCallbackAndConfirmSignup(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/auth/twitter/callback?code=abc", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cb CallbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cb))
	assert.Equal(t, string(services.OutcomeNewAccountPending), cb.Outcome)
	assert.Equal(t, "joepublic", cb.ProposedUsername)
	require.NotEmpty(t, cb.SignupToken)

	rec = doJSON(e, http.MethodPost, "/signup/confirm",
		`{"token":"`+cb.SignupToken+`","username":"","email":""}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var confirmed CallbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirmed))
	assert.Equal(t, string(services.OutcomeSignupCompleted), confirmed.Outcome)
	assert.Equal(t, "joepublic", confirmed.Account.Username)
	assert.NotEmpty(t, confirmed.SessionID)
}

func TestProviderCallbackMissingCode(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/auth/twitter/callback", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupLoginAndSession(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/signup",
		`{"username":"joe","email":"joe@example.com","password":"secret"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var signup SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signup))
	require.NotEmpty(t, signup.SessionID)

	rec = doJSON(e, http.MethodGet, "/account", "", signup.SessionID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/login",
		`{"email":"joe@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodPost, "/login",
		`{"email":"joe@example.com","password":"secret"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEndpointsRequireLogin(t *testing.T) {
	e := newTestServer(t)

	for _, probe := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/account"},
		{http.MethodGet, "/account/authorizations"},
		{http.MethodPost, "/updates"},
		{http.MethodGet, "/updates"},
	} {
		rec := doJSON(e, probe.method, probe.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, probe.path)
	}
}

func TestSetUsernameConflict(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/signup",
		`{"username":"joe","email":"joe@example.com","password":"secret"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var joe SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joe))

	rec = doJSON(e, http.MethodPost, "/signup",
		`{"username":"jane","email":"jane@example.com","password":"secret"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var jane SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jane))

	rec = doJSON(e, http.MethodPost, "/account/username", `{"username":"joe"}`, jane.SessionID)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(e, http.MethodPost, "/account/username", `{"username":"jane2"}`, jane.SessionID)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSubmitUpdateValidation(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/signup",
		`{"username":"joe","email":"joe@example.com","password":"secret"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var joe SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joe))

	rec = doJSON(e, http.MethodPost, "/updates", `{"content":"   "}`, joe.SessionID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/updates", `{"content":"hello"}`, joe.SessionID)
	require.Equal(t, http.StatusCreated, rec.Code)

	var update domain.StatusUpdate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &update))
	assert.Equal(t, "hello", update.Content)
	assert.Equal(t, domain.PublishNotAttempted, update.Outcomes[domain.ProviderTwitter])
}
