package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-social/crosspost/domain"
	"github.com/crosspost-social/crosspost/internal/provider"
	"github.com/crosspost-social/crosspost/services"
)

func newPublishEnv(t *testing.T) (*testEnv, *services.PublishService) {
	t.Helper()
	env := newTestEnv(t)
	registry := provider.NewRegistry(env.twitter, env.facebook)
	svc := services.NewPublishService(env.updates, env.auths, registry, 0)
	return env, svc
}

func TestSubmitPublishesToOptedInLinkedProviders(t *testing.T) {
	env, svc := newPublishEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "joe", "joe@example.com")
	env.linkAuthorization(t, account.ID, domain.ProviderTwitter, "78654", "1111", "2222", "joepublic")
	env.linkAuthorization(t, account.ID, domain.ProviderFacebook, "12345", "3333", "4444", "jane")

	update, err := svc.SubmitStatusUpdate(ctx, account.ID, "hello world", []string{domain.ProviderTwitter})
	require.NoError(t, err)

	assert.Equal(t, []string{"hello world"}, env.twitter.published)
	assert.Equal(t, 0, env.facebook.publishCount())

	assert.Equal(t, domain.PublishSuccess, update.Outcomes[domain.ProviderTwitter])
	assert.Equal(t, domain.PublishNotAttempted, update.Outcomes[domain.ProviderFacebook])
}

func TestSubmitSkipsUnlinkedProvider(t *testing.T) {
	env, svc := newPublishEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "joe", "joe@example.com")
	env.linkAuthorization(t, account.ID, domain.ProviderTwitter, "78654", "1111", "2222", "joepublic")

	// Facebook is opted in but not linked, so it is never invoked.
	update, err := svc.SubmitStatusUpdate(ctx, account.ID, "hello",
		[]string{domain.ProviderTwitter, domain.ProviderFacebook})
	require.NoError(t, err)

	assert.Equal(t, 1, env.twitter.publishCount())
	assert.Equal(t, 0, env.facebook.publishCount())
	assert.Equal(t, domain.PublishNotAttempted, update.Outcomes[domain.ProviderFacebook])
}

func TestSubmitRecordsPerProviderFailure(t *testing.T) {
	env, svc := newPublishEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "joe", "joe@example.com")
	env.linkAuthorization(t, account.ID, domain.ProviderTwitter, "78654", "1111", "2222", "joepublic")
	env.linkAuthorization(t, account.ID, domain.ProviderFacebook, "12345", "3333", "4444", "jane")
	env.twitter.publishErr = errors.New("rate limited")

	update, err := svc.SubmitStatusUpdate(ctx, account.ID, "hello",
		[]string{domain.ProviderTwitter, domain.ProviderFacebook})
	require.NoError(t, err)

	// One provider failing never affects the other.
	assert.Equal(t, domain.PublishFailure, update.Outcomes[domain.ProviderTwitter])
	assert.Equal(t, domain.PublishSuccess, update.Outcomes[domain.ProviderFacebook])
}

func TestSubmitPersistsUpdateEvenWhenAllPublishesFail(t *testing.T) {
	env, svc := newPublishEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "joe", "joe@example.com")
	env.linkAuthorization(t, account.ID, domain.ProviderTwitter, "78654", "1111", "2222", "joepublic")
	env.twitter.publishErr = errors.New("down")

	update, err := svc.SubmitStatusUpdate(ctx, account.ID, "hello", []string{domain.ProviderTwitter})
	require.NoError(t, err)

	stored, err := env.updates.GetByID(ctx, update.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Content)
	assert.Equal(t, domain.PublishFailure, stored.Outcomes[domain.ProviderTwitter])
}

func TestSubmitWithoutOptInsStaysLocal(t *testing.T) {
	env, svc := newPublishEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "joe", "joe@example.com")
	env.linkAuthorization(t, account.ID, domain.ProviderTwitter, "78654", "1111", "2222", "joepublic")

	update, err := svc.SubmitStatusUpdate(ctx, account.ID, "local only", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, env.twitter.publishCount())
	for _, outcome := range update.Outcomes {
		assert.Equal(t, domain.PublishNotAttempted, outcome)
	}
}

func TestListStatusUpdatesNewestFirst(t *testing.T) {
	env, svc := newPublishEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "joe", "joe@example.com")

	for _, content := range []string{"first", "second", "third"} {
		_, err := svc.SubmitStatusUpdate(ctx, account.ID, content, nil)
		require.NoError(t, err)
	}

	updates, err := svc.ListStatusUpdates(ctx, account.ID, 2)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.True(t, !updates[0].CreatedAt.Before(updates[1].CreatedAt))
}
