package domain

// ProviderIdentity is the normalized form of a provider callback payload.
// It is a transient value object: the resolver produces it, the account
// matcher consumes it, and it is never persisted directly.
type ProviderIdentity struct {
	Provider string
	UID      string
	// Nickname is the provider-proposed username. May be empty, or malformed
	// (facebook historically handed out "profile.php?id=..." handles).
	Nickname string
	Name     string
	Email    string
	Token    string
	Secret   string
	// Profile carries the remaining open-ended profile fields the provider
	// sent along (description, image, named urls, ...).
	Profile map[string]any
}
