package domain

import "time"

// Session represents an active login session. Stored in Redis in production;
// the cookie/transport mechanics live with the caller, this core only mints
// and resolves session records.
type Session struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	AccountID string    `bson:"account_id" json:"account_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}
