package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/crosspost-social/crosspost/domain"
	"golang.org/x/oauth2"
	facebookOAuth2 "golang.org/x/oauth2/facebook"
)

const facebookGraphBase = "https://graph.facebook.com"

// FacebookProvider implements the Provider capability against the Facebook
// Graph API.
type FacebookProvider struct {
	config Config
	// APIBase is overridable so tests can point the provider at a local server.
	APIBase string
	client  *http.Client
}

// NewFacebookProvider creates a FacebookProvider from app credentials.
func NewFacebookProvider(cfg Config) *FacebookProvider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"public_profile", "email", "publish_actions"}
	}
	return &FacebookProvider{
		config:  cfg,
		APIBase: facebookGraphBase,
		client:  http.DefaultClient,
	}
}

func (p *FacebookProvider) Name() string { return domain.ProviderFacebook }

func (p *FacebookProvider) oauthConfig() (*oauth2.Config, error) {
	if p.config.ClientID == "" || p.config.ClientSecret == "" {
		return nil, ErrMisconfigured
	}
	return &oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		RedirectURL:  p.config.RedirectURL,
		Scopes:       p.config.Scopes,
		Endpoint:     facebookOAuth2.Endpoint,
	}, nil
}

func (p *FacebookProvider) AuthCodeURL(state string) (string, error) {
	conf, err := p.oauthConfig()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL(state), nil
}

// Exchange completes the handshake and assembles the raw callback payload
// from the token response and the Graph /me record. Facebook's proposed
// username can be an auto-generated "profile.php?id=..." handle; the account
// matcher deals with that downstream.
func (p *FacebookProvider) Exchange(ctx context.Context, code string) (map[string]any, error) {
	conf, err := p.oauthConfig()
	if err != nil {
		return nil, err
	}
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.APIBase+"/me?fields=id,name,username,email,picture", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	resp, err := conf.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrFetchFailed, resp.StatusCode, string(respBody))
	}

	var user struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Picture  struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	return map[string]any{
		"uid": user.ID,
		"user_info": map[string]any{
			"name":     user.Name,
			"nickname": user.Username,
			"email":    user.Email,
			"image":    user.Picture.Data.URL,
		},
		"credentials": map[string]any{
			"token":  token.AccessToken,
			"secret": token.RefreshToken,
		},
	}, nil
}

// FetchCredentials retrieves the credentials Facebook currently holds for a
// linked uid, authenticating with the app's client id and secret.
func (p *FacebookProvider) FetchCredentials(ctx context.Context, uid string) (*Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.APIBase+"/oauth/credentials?uid="+uid, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.SetBasicAuth(p.config.ClientID, p.config.ClientSecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	var creds struct {
		Token    string `json:"token"`
		Secret   string `json:"secret"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return &Credentials{Token: creds.Token, Secret: creds.Secret, Nickname: creds.Username}, nil
}

// Publish posts to the account's feed.
func (p *FacebookProvider) Publish(ctx context.Context, auth *domain.Authorization, content string) error {
	body, err := json.Marshal(map[string]string{"message": content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.APIBase+"/"+auth.UID+"/feed", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+auth.OAuthToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d, body: %s", ErrPublishFailed, resp.StatusCode, string(respBody))
	}
	return nil
}

var _ Provider = (*FacebookProvider)(nil)
