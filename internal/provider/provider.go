package provider

import (
	"context"

	"github.com/crosspost-social/crosspost/domain"
)

// Credentials is the current credential set a provider holds for a linked
// identity. Used to backfill legacy authorization records.
type Credentials struct {
	Token    string
	Secret   string
	Nickname string
}

// Provider is the capability surface of one external identity/publishing
// service. Implementations are injected; nothing in the core reaches into
// ambient configuration to find one.
type Provider interface {
	// Name returns the provider's unique name ("twitter", "facebook").
	Name() string

	// AuthCodeURL returns the URL to redirect the user to for the external
	// handshake. state is an opaque CSRF token round-tripped by the provider.
	AuthCodeURL(state string) (string, error)

	// Exchange completes the handshake for an authorization code and returns
	// the raw callback payload (uid, user_info, credentials) that the
	// resolver normalizes.
	Exchange(ctx context.Context, code string) (map[string]any, error)

	// FetchCredentials returns the provider's current credentials for a
	// previously linked uid.
	FetchCredentials(ctx context.Context, uid string) (*Credentials, error)

	// Publish posts content on behalf of the given authorization.
	Publish(ctx context.Context, auth *domain.Authorization, content string) error
}

// Registry maps provider names to capability implementations. Dispatch is by
// name tag, never by reflection.
type Registry struct {
	providers map[string]Provider
	names     []string
}

// NewRegistry creates a registry holding the given providers. Registration
// order is preserved and used as the fan-out iteration order.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) {
	if _, ok := r.providers[p.Name()]; !ok {
		r.names = append(r.names, p.Name())
	}
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
