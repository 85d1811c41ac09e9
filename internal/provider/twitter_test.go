package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-social/crosspost/domain"
)

func testTwitterProvider(apiBase string) *TwitterProvider {
	p := NewTwitterProvider(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/auth/twitter/callback",
	})
	p.APIBase = apiBase
	return p
}

func TestTwitterAuthCodeURL(t *testing.T) {
	p := testTwitterProvider("http://unused")

	url, err := p.AuthCodeURL("csrf-state")
	require.NoError(t, err)
	assert.Contains(t, url, "twitter.com/i/oauth2/authorize")
	assert.Contains(t, url, "state=csrf-state")
	assert.Contains(t, url, "client_id=client-id")
}

func TestTwitterAuthCodeURLMisconfigured(t *testing.T) {
	p := NewTwitterProvider(Config{})

	_, err := p.AuthCodeURL("state")
	assert.True(t, errors.Is(err, ErrMisconfigured))
}

func TestTwitterPublish(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/2/tweets", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotBody = payload["text"]
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1"}}`))
	}))
	defer srv.Close()

	p := testTwitterProvider(srv.URL)
	auth := &domain.Authorization{OAuthToken: "1111", OAuthSecret: "2222"}

	err := p.Publish(context.Background(), auth, "hello world")
	require.NoError(t, err)
	assert.Equal(t, "Bearer 1111", gotAuth)
	assert.Equal(t, "hello world", gotBody)
}

func TestTwitterPublishFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Too Many Requests"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := testTwitterProvider(srv.URL)
	err := p.Publish(context.Background(), &domain.Authorization{OAuthToken: "1111"}, "hello")
	assert.True(t, errors.Is(err, ErrPublishFailed))
}

func TestTwitterFetchCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/credentials", r.URL.Path)
		require.Equal(t, "78654", r.URL.Query().Get("uid"))
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-id", user)
		require.Equal(t, "client-secret", pass)
		json.NewEncoder(w).Encode(map[string]string{
			"token":       "1234",
			"secret":      "4567",
			"screen_name": "joepublic",
		})
	}))
	defer srv.Close()

	p := testTwitterProvider(srv.URL)
	creds, err := p.FetchCredentials(context.Background(), "78654")
	require.NoError(t, err)

	assert.Equal(t, "1234", creds.Token)
	assert.Equal(t, "4567", creds.Secret)
	assert.Equal(t, "joepublic", creds.Nickname)
}

func TestTwitterFetchCredentialsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := testTwitterProvider(srv.URL)
	_, err := p.FetchCredentials(context.Background(), "78654")
	assert.True(t, errors.Is(err, ErrFetchFailed))
}
