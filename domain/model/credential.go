package model

import "time"

const PlatformLinkedIn = "linkedin"

// Credential stores platform OAuth tokens per user. At most one row per
// (user_id, platform) is active; refreshes supersede the old row instead of
// mutating it so token history stays auditable.
type Credential struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"user_id"`
	Platform          string    `json:"platform"`
	PlatformAccountID string    `json:"platform_account_id"`
	AccessToken       string    `json:"-"`
	RefreshToken      string    `json:"-"`
	Scopes            string    `json:"scopes"`
	IssuedAt          time.Time `json:"issued_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FreshFor reports whether the access token is still usable at now plus the
// given safety margin (absorbs clock skew and in-flight request latency).
func (c *Credential) FreshFor(now time.Time, margin time.Duration) bool {
	return now.Add(margin).Before(c.ExpiresAt)
}

// PublishAttempt is an append-only audit record of a single publish attempt.
const (
	AttemptOutcomeSuccess   = "success"
	AttemptOutcomeRetryable = "retryable_failure"
	AttemptOutcomeFatal     = "fatal_failure"
)

type PublishAttempt struct {
	AttemptID string    `json:"attempt_id" bson:"attempt_id"`
	PostID    string    `json:"post_id" bson:"post_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Platform  string    `json:"platform" bson:"platform"`
	Outcome   string    `json:"outcome" bson:"outcome"`
	Detail    string    `json:"detail,omitempty" bson:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
}
