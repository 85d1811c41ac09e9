package domain

import "time"

// PublishOutcome records what happened for a single provider during the
// fan-out of one status update.
type PublishOutcome string

const (
	PublishSuccess      PublishOutcome = "success"
	PublishFailure      PublishOutcome = "failure"
	PublishNotAttempted PublishOutcome = "not-attempted"
)

// StatusUpdate is a single user-authored post. It is created exactly once
// per submission, before any provider is contacted; the per-provider outcome
// log is filled in during the same submission's fan-out and is immutable
// afterwards.
type StatusUpdate struct {
	ID        string                    `bson:"_id,omitempty" json:"id"`
	AccountID string                    `bson:"account_id" json:"account_id"`
	Content   string                    `bson:"content" json:"content"`
	Outcomes  map[string]PublishOutcome `bson:"outcomes" json:"outcomes"`
	CreatedAt time.Time                 `bson:"created_at" json:"created_at"`
}
