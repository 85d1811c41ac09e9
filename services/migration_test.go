package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-social/crosspost/domain"
)

func TestEnsureMigratedBackfillsLegacyRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "joe", "joe@example.com")
	env.linkAuthorization(t, account.ID, domain.ProviderTwitter, "78654", "", "", "")

	auths, err := env.svc.ListAuthorizations(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, auths, 1)

	assert.Equal(t, "1234", auths[0].OAuthToken)
	assert.Equal(t, "4567", auths[0].OAuthSecret)
	assert.Equal(t, "joepublic", auths[0].Nickname)
	assert.Equal(t, 1, env.twitter.fetchCalls)

	// The backfill is persisted, so listing again does not re-fetch.
	auths, err = env.svc.ListAuthorizations(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "1234", auths[0].OAuthToken)
	assert.Equal(t, 1, env.twitter.fetchCalls)
}

func TestEnsureMigratedSkipsCompleteRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "joe", "joe@example.com")
	env.linkAuthorization(t, account.ID, domain.ProviderTwitter, "78654", "1111", "2222", "joepublic")

	auths, err := env.svc.ListAuthorizations(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, auths, 1)

	assert.Equal(t, "1111", auths[0].OAuthToken)
	assert.Equal(t, 0, env.twitter.fetchCalls)
}

func TestEnsureMigratedPartialRecordKeepsExistingFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "joe", "joe@example.com")
	env.linkAuthorization(t, account.ID, domain.ProviderTwitter, "78654", "1111", "", "")

	auths, err := env.svc.ListAuthorizations(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, auths, 1)

	// Only the gaps are filled; the stored token is not clobbered.
	assert.Equal(t, "1111", auths[0].OAuthToken)
	assert.Equal(t, "4567", auths[0].OAuthSecret)
	assert.Equal(t, "joepublic", auths[0].Nickname)
}

func TestEnsureMigratedNicknameFallsBackToUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "joe", "joe@example.com")
	env.linkAuthorization(t, account.ID, domain.ProviderTwitter, "78654", "", "", "")
	env.twitter.creds.Nickname = ""

	auths, err := env.svc.ListAuthorizations(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, auths, 1)
	assert.Equal(t, "joe", auths[0].Nickname)
}

func TestEnsureMigratedFetchFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "joe", "joe@example.com")
	env.linkAuthorization(t, account.ID, domain.ProviderTwitter, "78654", "", "", "")
	env.twitter.credsErr = errors.New("provider unavailable")

	auths, err := env.svc.ListAuthorizations(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, auths, 1)

	// The record stays usable as-is and the next listing tries again.
	assert.Empty(t, auths[0].OAuthToken)
	assert.Equal(t, 1, env.twitter.fetchCalls)

	env.twitter.credsErr = nil
	auths, err = env.svc.ListAuthorizations(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "1234", auths[0].OAuthToken)
	assert.Equal(t, 2, env.twitter.fetchCalls)
}
