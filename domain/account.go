package domain

import "time"

// Account represents a local user account. An account is created either
// through direct email signup or at the end of the provider signup
// confirmation flow, together with its first Authorization.
type Account struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Username     string    `bson:"username" json:"username"` // unique
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string    `bson:"password_hash,omitempty" json:"-"` // empty for provider-only accounts
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}
