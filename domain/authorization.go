package domain

import "time"

// Provider names enumerate the external services an account can link.
const (
	ProviderTwitter  = "twitter"
	ProviderFacebook = "facebook"
)

// Providers is the fixed, ordered set of supported provider names. The
// publish fan-out walks this set; lookups and linking validate against it.
var Providers = []string{ProviderTwitter, ProviderFacebook}

// KnownProvider reports whether name is one of the supported providers.
func KnownProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

// Authorization links a local account to one external provider identity and
// carries that provider's credentials. (provider, uid) is globally unique:
// a given provider identity belongs to exactly one account at a time. An
// account holds at most one Authorization per provider.
type Authorization struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	AccountID string `bson:"account_id" json:"account_id"`
	Provider  string `bson:"provider" json:"provider"`
	// UID is the provider-assigned user id, normalized to a string. Providers
	// emit both numeric and string ids; comparison always happens on the
	// string form.
	UID         string    `bson:"uid" json:"uid"`
	OAuthToken  string    `bson:"oauth_token,omitempty" json:"-"`
	OAuthSecret string    `bson:"oauth_secret,omitempty" json:"-"`
	Nickname    string    `bson:"nickname,omitempty" json:"nickname,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// Migrated reports whether the stored record carries the full current
// credential shape. Records persisted by older versions may miss the token,
// secret or nickname and are backfilled transparently on first use.
func (a *Authorization) Migrated() bool {
	return a.OAuthToken != "" && a.OAuthSecret != "" && a.Nickname != ""
}
