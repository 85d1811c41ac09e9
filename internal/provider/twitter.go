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
)

// TwitterEndpoint is Twitter's OAuth2 endpoint pair.
var TwitterEndpoint = oauth2.Endpoint{
	AuthURL:  "https://twitter.com/i/oauth2/authorize",
	TokenURL: "https://api.twitter.com/2/oauth2/token",
}

const twitterAPIBase = "https://api.twitter.com"

// Config holds the app credentials for one external provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// TwitterProvider implements the Provider capability against the Twitter API.
type TwitterProvider struct {
	config Config
	// APIBase is overridable so tests can point the provider at a local server.
	APIBase string
	client  *http.Client
}

// NewTwitterProvider creates a TwitterProvider from app credentials.
func NewTwitterProvider(cfg Config) *TwitterProvider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"tweet.read", "tweet.write", "users.read"}
	}
	return &TwitterProvider{
		config:  cfg,
		APIBase: twitterAPIBase,
		client:  http.DefaultClient,
	}
}

func (p *TwitterProvider) Name() string { return domain.ProviderTwitter }

func (p *TwitterProvider) oauthConfig() (*oauth2.Config, error) {
	if p.config.ClientID == "" || p.config.ClientSecret == "" {
		return nil, ErrMisconfigured
	}
	return &oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		RedirectURL:  p.config.RedirectURL,
		Scopes:       p.config.Scopes,
		Endpoint:     TwitterEndpoint,
	}, nil
}

func (p *TwitterProvider) AuthCodeURL(state string) (string, error) {
	conf, err := p.oauthConfig()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL(state), nil
}

// Exchange completes the handshake and assembles the raw callback payload
// from the token response and the user record.
func (p *TwitterProvider) Exchange(ctx context.Context, code string) (map[string]any, error) {
	conf, err := p.oauthConfig()
	if err != nil {
		return nil, err
	}
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	var user struct {
		Data struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Username    string `json:"username"`
			Description string `json:"description"`
			ImageURL    string `json:"profile_image_url"`
		} `json:"data"`
	}
	err = p.getJSON(ctx, conf.Client(ctx, token),
		p.APIBase+"/2/users/me?user.fields=name,username,description,profile_image_url", &user)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"uid": user.Data.ID,
		"user_info": map[string]any{
			"name":        user.Data.Name,
			"nickname":    user.Data.Username,
			"description": user.Data.Description,
			"image":       user.Data.ImageURL,
		},
		"credentials": map[string]any{
			"token":  token.AccessToken,
			"secret": token.RefreshToken,
		},
	}, nil
}

// FetchCredentials retrieves the credentials Twitter currently holds for a
// linked uid, authenticating with the app's client id and secret. Used to
// backfill authorization records persisted before tokens were stored.
func (p *TwitterProvider) FetchCredentials(ctx context.Context, uid string) (*Credentials, error) {
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
		Token      string `json:"token"`
		Secret     string `json:"secret"`
		ScreenName string `json:"screen_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return &Credentials{Token: creds.Token, Secret: creds.Secret, Nickname: creds.ScreenName}, nil
}

// Publish posts a tweet on behalf of the authorization's account.
func (p *TwitterProvider) Publish(ctx context.Context, auth *domain.Authorization, content string) error {
	body, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.APIBase+"/2/tweets", bytes.NewReader(body))
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

func (p *TwitterProvider) getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d, body: %s", ErrFetchFailed, resp.StatusCode, string(respBody))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ Provider = (*TwitterProvider)(nil)
