package model

import "time"

// Post status lifecycle: draft -> publishing -> published | failed.
// failed -> publishing is allowed again on retry; published is terminal.
const (
	PostStatusDraft      = "draft"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

// Failure kinds recorded on a failed post so retry loops can tell
// retryable outcomes from fatal ones without parsing log text.
const (
	FailureAuthRequired    = "auth_required"
	FailureTransientAuth   = "transient_auth"
	FailureRemoteRetryable = "remote_retryable"
	FailureRemoteFatal     = "remote_fatal"
)

// Post is a draft authored by a user, publishable to a connected platform.
// ExternalPostID is non-nil exactly when Status is published.
type Post struct {
	ID             string     `json:"id"`
	AuthorID       string     `json:"author_id"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	ImageRef       *string    `json:"image_ref,omitempty"`
	Status         string     `json:"status"`
	FailureKind    *string    `json:"failure_kind,omitempty"`
	FailureDetail  *string    `json:"failure_detail,omitempty"`
	ExternalPostID *string    `json:"external_post_id,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// RetryableFailure reports whether the recorded failure kind is eligible
// for an automatic re-publish.
func (p *Post) RetryableFailure() bool {
	if p.Status != PostStatusFailed || p.FailureKind == nil {
		return false
	}
	return *p.FailureKind == FailureRemoteRetryable || *p.FailureKind == FailureTransientAuth
}
