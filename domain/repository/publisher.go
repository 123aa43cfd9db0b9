package repository

import (
	"context"
	"fmt"

	"social-publisher/domain/model"
)

// Remote submit outcome classes. AuthRejected is split out so the caller can
// short-circuit to re-authorization instead of treating it as a generic
// fatal error.
const (
	RemoteOutcomeRetryable    = "retryable"
	RemoteOutcomeFatal        = "fatal"
	RemoteOutcomeAuthRejected = "auth_rejected"
)

// RemoteError carries the classified HTTP outcome of a failed submit.
type RemoteError struct {
	StatusCode int
	Outcome    string
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote publish failed: status=%d outcome=%s", e.StatusCode, e.Outcome)
}

// IPublisher submits one payload to the remote platform. A single HTTP call,
// no internal retries; retry policy belongs to the orchestrator.
type IPublisher interface {
	Submit(ctx context.Context, payload *model.PublishPayload, accessToken, idempotencyKey string) (string, error)
}

// ITokenExchanger talks to the platform's OAuth token endpoint.
type ITokenExchanger interface {
	Exchange(ctx context.Context, code string) (*model.TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error)
	AccountID(ctx context.Context, accessToken string) (string, error)
}

// RefreshError distinguishes a rejected grant (re-auth required) from a
// transient token-endpoint failure (retryable with backoff).
type RefreshError struct {
	StatusCode int
	Code       string
	Transient  bool
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: status=%d code=%s", e.StatusCode, e.Code)
}
