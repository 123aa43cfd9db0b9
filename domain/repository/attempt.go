package repository

import (
	"context"

	"social-publisher/domain/model"
)

// IPublishAttempt is the append-only attempt audit log.
type IPublishAttempt interface {
	Record(ctx context.Context, attempt *model.PublishAttempt) error
	ListByPost(ctx context.Context, postID string) ([]*model.PublishAttempt, error)
}
