package repository

import (
	"context"
	"errors"
	"time"

	"social-publisher/domain/model"
)

var ErrPostNotFound = errors.New("post not found")

// IPost is the post store. Status transitions go through conditional updates
// so concurrent publishers serialize on the row itself.
type IPost interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*model.Post, error)

	// UpdateStatusIf sets status (and failure fields) only when the current
	// status matches expected. Returns false when another writer won the race.
	UpdateStatusIf(ctx context.Context, id, expected, status string, failureKind, failureDetail *string) (bool, error)

	// MarkPublished atomically sets status=published, the external id and the
	// publish time, conditioned on status=publishing.
	MarkPublished(ctx context.Context, id, externalPostID string, publishedAt time.Time) (bool, error)

	// IsExternallyPublished reports whether an external id was already
	// recorded, and returns it. Duplicate-submit guard for crash recovery.
	IsExternallyPublished(ctx context.Context, id string) (bool, string, error)

	// ListRetryable returns failed posts whose failure kind is retryable.
	ListRetryable(ctx context.Context, limit int) ([]*model.Post, error)

	// ReleaseStuckPublishing fails publishing rows untouched since cutoff. A
	// crash between winning the transition and recording an outcome would
	// otherwise leave the row at publishing forever.
	ReleaseStuckPublishing(ctx context.Context, cutoff time.Time, failureKind, failureDetail string) (int64, error)
}
