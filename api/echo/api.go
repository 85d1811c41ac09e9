//nolint:varnamelen
package echo

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/crosspost-social/crosspost/domain"
	apierrors "github.com/crosspost-social/crosspost/errors"
	"github.com/crosspost-social/crosspost/internal/provider"
	"github.com/crosspost-social/crosspost/services"
)

// CrosspostAPI struct to hold dependencies.
type CrosspostAPI struct {
	accounts *services.AccountService
	publish  *services.PublishService
}

// NewCrosspostAPI initializes the HTTP API.
func NewCrosspostAPI(accounts *services.AccountService, publish *services.PublishService) *CrosspostAPI {
	return &CrosspostAPI{
		accounts: accounts,
		publish:  publish,
	}
}

// RegisterRoutes registers the API routes.
func (a *CrosspostAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/auth/:provider", a.ProviderLoginHandler)
	e.GET("/auth/:provider/callback", a.ProviderCallbackHandler)
	e.DELETE("/auth/:provider", a.RemoveAuthorizationHandler)
	e.GET("/account/authorizations", a.ListAuthorizationsHandler)

	e.POST("/signup", a.SignupHandler)
	e.POST("/signup/confirm", a.ConfirmSignupHandler)
	e.POST("/login", a.LoginHandler)
	e.POST("/logout", a.LogoutHandler)

	e.POST("/account/username", a.SetUsernameHandler)
	e.GET("/account", a.AccountHandler)

	e.POST("/updates", a.SubmitUpdateHandler)
	e.GET("/updates", a.ListUpdatesHandler)

	e.GET("/healthz", a.HealthHandler)
}

// sessionID extracts the bearer session token from the Authorization header.
// An absent or malformed header yields an empty id, which downstream code
// treats as "not logged in".
func sessionID(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return ""
	}
	return tokenParts[1]
}

// currentAccount resolves the request's session to an account. Returns nil
// without error when no session header is present.
func (a *CrosspostAPI) currentAccount(c echo.Context) (*domain.Account, error) {
	sid := sessionID(c)
	if sid == "" {
		return nil, nil
	}
	account, err := a.accounts.ResolveSession(c.Request().Context(), sid)
	if err != nil {
		if errors.Is(err, services.ErrSessionExpired) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

// requireAccount is currentAccount for endpoints that demand a login.
func (a *CrosspostAPI) requireAccount(c echo.Context) (*domain.Account, *apierrors.APIError) {
	account, err := a.currentAccount(c)
	if err != nil {
		log.Error().Err(err).Msg("Session resolution failed")
		return nil, apierrors.NewServerError("Failed to resolve session")
	}
	if account == nil {
		return nil, apierrors.NewUnauthorized("Login required")
	}
	return account, nil
}

// ProviderLoginHandler starts the external handshake by redirecting the user
// agent to the provider's authorization page.
func (a *CrosspostAPI) ProviderLoginHandler(c echo.Context) error {
	providerName := c.Param("provider")
	state := c.QueryParam("state")

	url, err := a.accounts.AuthCodeURL(providerName, state)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotFound) {
			return c.JSON(http.StatusNotFound, apierrors.NewNotFound("Unknown provider"))
		}
		log.Error().Err(err).Str("provider", providerName).Msg("Failed to build auth URL")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to start provider login"))
	}

	return c.Redirect(http.StatusFound, url)
}

// CallbackResponse is the JSON body returned from a provider callback.
type CallbackResponse struct {
	Outcome          string          `json:"outcome"`
	Redirect         string          `json:"redirect"`
	SessionID        string          `json:"session_id,omitempty"`
	Account          *domain.Account `json:"account,omitempty"`
	SignupToken      string          `json:"signup_token,omitempty"`
	ProposedUsername string          `json:"proposed_username,omitempty"`
	EmailRequired    bool            `json:"email_required,omitempty"`
}

func callbackResponse(result *services.CallbackResult) CallbackResponse {
	resp := CallbackResponse{
		Outcome:          string(result.Outcome),
		Redirect:         string(result.Redirect),
		Account:          result.Account,
		SignupToken:      result.ContinuationToken,
		ProposedUsername: result.ProposedUsername,
		EmailRequired:    result.EmailRequired,
	}
	if result.Session != nil {
		resp.SessionID = result.Session.ID
	}
	return resp
}

// ProviderCallbackHandler receives the provider's redirect with an
// authorization code and resolves it into a login, a link, or a pending
// signup.
func (a *CrosspostAPI) ProviderCallbackHandler(c echo.Context) error {
	providerName := c.Param("provider")
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("Missing authorization code"))
	}

	account, err := a.currentAccount(c)
	if err != nil {
		log.Error().Err(err).Msg("Session resolution failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to resolve session"))
	}
	sessionAccountID := ""
	if account != nil {
		sessionAccountID = account.ID
	}

	ctx := c.Request().Context()

	result, err := a.accounts.HandleProviderLogin(ctx, providerName, code, sessionAccountID)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrProviderNotFound):
			return c.JSON(http.StatusNotFound, apierrors.NewNotFound("Unknown provider"))
		case errors.Is(err, provider.ErrMalformedCallback):
			return c.JSON(http.StatusBadGateway, apierrors.NewMalformedCallback("Provider returned an unusable payload"))
		case errors.Is(err, provider.ErrExchangeFailed):
			return c.JSON(http.StatusBadGateway, apierrors.NewMalformedCallback("Code exchange with provider failed"))
		}
		log.Error().Err(err).Str("provider", providerName).Msg("Provider callback failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Provider callback failed"))
	}

	return c.JSON(http.StatusOK, callbackResponse(result))
}

// ConfirmSignupRequest carries the user's choices from the signup
// confirmation page.
type ConfirmSignupRequest struct {
	Token    string `json:"token" form:"token"`
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
}

// ConfirmSignupHandler finishes a pending provider signup.
func (a *CrosspostAPI) ConfirmSignupHandler(c echo.Context) error {
	var req ConfirmSignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("Malformed request body"))
	}
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("token is required"))
	}

	ctx := c.Request().Context()

	result, err := a.accounts.CompleteSignup(ctx, req.Token, req.Username, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPendingSignupExpired):
			return c.JSON(http.StatusGone, apierrors.NewInvalidRequest("Signup confirmation expired, restart the provider login"))
		case errors.Is(err, services.ErrUsernameInvalid):
			return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("Username contains disallowed characters"))
		case errors.Is(err, domain.ErrUsernameTaken):
			return c.JSON(http.StatusConflict, apierrors.NewConflict("Username is already taken"))
		case errors.Is(err, services.ErrEmailRequired):
			return c.JSON(http.StatusBadRequest, apierrors.NewNeedsInput("An email address is required"))
		}
		log.Error().Err(err).Msg("Signup confirmation failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Signup confirmation failed"))
	}

	return c.JSON(http.StatusCreated, callbackResponse(result))
}

// SignupRequest is an email-and-password registration.
type SignupRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// SessionResponse is returned from login and signup endpoints.
type SessionResponse struct {
	SessionID string          `json:"session_id"`
	Account   *domain.Account `json:"account"`
}

// SignupHandler registers an account with a password and no provider links.
func (a *CrosspostAPI) SignupHandler(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("Malformed request body"))
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("password is required"))
	}

	ctx := c.Request().Context()

	account, session, err := a.accounts.RegisterWithEmail(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameInvalid):
			return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("Username contains disallowed characters"))
		case errors.Is(err, services.ErrEmailRequired):
			return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("email is required"))
		case errors.Is(err, domain.ErrUsernameTaken):
			return c.JSON(http.StatusConflict, apierrors.NewConflict("Username is already taken"))
		case errors.Is(err, domain.ErrEmailTaken):
			return c.JSON(http.StatusConflict, apierrors.NewConflict("Email is already registered"))
		}
		log.Error().Err(err).Msg("Signup failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Signup failed"))
	}

	return c.JSON(http.StatusCreated, SessionResponse{SessionID: session.ID, Account: account})
}

// LoginRequest is an email-and-password login.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginHandler logs a user in by email and password.
func (a *CrosspostAPI) LoginHandler(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("Malformed request body"))
	}

	ctx := c.Request().Context()

	account, session, err := a.accounts.AuthenticateEmail(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorized("Invalid email or password"))
		}
		log.Error().Err(err).Msg("Login failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Login failed"))
	}

	return c.JSON(http.StatusOK, SessionResponse{SessionID: session.ID, Account: account})
}

// LogoutHandler drops the request's session. Logging out without a session is
// a no-op success.
func (a *CrosspostAPI) LogoutHandler(c echo.Context) error {
	sid := sessionID(c)
	if sid != "" {
		if err := a.accounts.Logout(c.Request().Context(), sid); err != nil {
			log.Warn().Err(err).Msg("Failed to delete session on logout")
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// SetUsernameRequest carries a username change.
type SetUsernameRequest struct {
	Username string `json:"username" form:"username"`
}

// SetUsernameHandler validates and applies a username change for the logged
// in account.
func (a *CrosspostAPI) SetUsernameHandler(c echo.Context) error {
	account, apiErr := a.requireAccount(c)
	if apiErr != nil {
		return c.JSON(apiErr.HTTPStatus(), apiErr)
	}

	var req SetUsernameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("Malformed request body"))
	}

	ctx := c.Request().Context()

	if err := a.accounts.SetUsername(ctx, account.ID, req.Username); err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameInvalid):
			return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("Username contains disallowed characters"))
		case errors.Is(err, domain.ErrUsernameTaken):
			return c.JSON(http.StatusConflict, apierrors.NewConflict("Username is already taken"))
		}
		log.Error().Err(err).Str("account_id", account.ID).Msg("Username change failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Username change failed"))
	}

	return c.NoContent(http.StatusNoContent)
}

// AccountHandler returns the logged in account.
func (a *CrosspostAPI) AccountHandler(c echo.Context) error {
	account, apiErr := a.requireAccount(c)
	if apiErr != nil {
		return c.JSON(apiErr.HTTPStatus(), apiErr)
	}
	return c.JSON(http.StatusOK, account)
}

// ListAuthorizationsHandler returns the account's provider links.
func (a *CrosspostAPI) ListAuthorizationsHandler(c echo.Context) error {
	account, apiErr := a.requireAccount(c)
	if apiErr != nil {
		return c.JSON(apiErr.HTTPStatus(), apiErr)
	}

	auths, err := a.accounts.ListAuthorizations(c.Request().Context(), account.ID)
	if err != nil {
		log.Error().Err(err).Str("account_id", account.ID).Msg("Failed to list authorizations")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to list authorizations"))
	}
	return c.JSON(http.StatusOK, auths)
}

// RemoveAuthorizationHandler unlinks a provider from the logged in account.
// Removing an absent link still returns 204.
func (a *CrosspostAPI) RemoveAuthorizationHandler(c echo.Context) error {
	account, apiErr := a.requireAccount(c)
	if apiErr != nil {
		return c.JSON(apiErr.HTTPStatus(), apiErr)
	}
	providerName := c.Param("provider")

	if err := a.accounts.RemoveAuthorization(c.Request().Context(), account.ID, providerName); err != nil {
		log.Error().Err(err).Str("account_id", account.ID).Str("provider", providerName).
			Msg("Failed to remove authorization")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to remove authorization"))
	}
	return c.NoContent(http.StatusNoContent)
}

// SubmitUpdateRequest is a new status update. Providers lists the opted-in
// provider names, mirroring the per-provider checkboxes on the update form.
type SubmitUpdateRequest struct {
	Content   string   `json:"content" form:"content"`
	Providers []string `json:"providers" form:"providers"`
}

// SubmitUpdateHandler creates a status update and fans it out to the opted-in
// providers. The update is returned with its per-provider outcome log.
func (a *CrosspostAPI) SubmitUpdateHandler(c echo.Context) error {
	account, apiErr := a.requireAccount(c)
	if apiErr != nil {
		return c.JSON(apiErr.HTTPStatus(), apiErr)
	}

	var req SubmitUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("Malformed request body"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("content is required"))
	}

	update, err := a.publish.SubmitStatusUpdate(c.Request().Context(), account.ID, req.Content, req.Providers)
	if err != nil {
		log.Error().Err(err).Str("account_id", account.ID).Msg("Failed to create status update")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to create status update"))
	}
	return c.JSON(http.StatusCreated, update)
}

const defaultTimelineLimit = 20

// ListUpdatesHandler returns the account's recent updates, newest first.
func (a *CrosspostAPI) ListUpdatesHandler(c echo.Context) error {
	account, apiErr := a.requireAccount(c)
	if apiErr != nil {
		return c.JSON(apiErr.HTTPStatus(), apiErr)
	}

	limit := defaultTimelineLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("limit must be a positive integer"))
		}
		limit = parsed
	}

	updates, err := a.publish.ListStatusUpdates(c.Request().Context(), account.ID, limit)
	if err != nil {
		log.Error().Err(err).Str("account_id", account.ID).Msg("Failed to list status updates")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to list status updates"))
	}
	return c.JSON(http.StatusOK, updates)
}

// HealthHandler is a liveness probe.
func (a *CrosspostAPI) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
