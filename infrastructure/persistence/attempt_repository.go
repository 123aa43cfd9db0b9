package persistence

import (
	"context"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AttemptRepository keeps the append-only publish attempt audit in MongoDB.
// Nil-safe: when Mongo is unavailable the audit is skipped, never fatal.
type AttemptRepository struct{ client *mongo.Client }

func NewAttemptRepository(client *mongo.Client) *AttemptRepository {
	return &AttemptRepository{client: client}
}

func (r *AttemptRepository) collection() *mongo.Collection {
	return r.client.Database("social_publisher").Collection("publish_attempts")
}

func (r *AttemptRepository) Record(ctx context.Context, attempt *model.PublishAttempt) error {
	if r.client == nil {
		logger.GetLogger().Debug("Mongo client is nil - skipping attempt audit")
		return nil
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection().InsertOne(ctx, attempt)
	return err
}

func (r *AttemptRepository) ListByPost(ctx context.Context, postID string) ([]*model.PublishAttempt, error) {
	if r.client == nil {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection().Find(ctx, bson.D{{Key: "post_id", Value: postID}}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}()

	var attempts []*model.PublishAttempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

var _ repository.IPublishAttempt = (*AttemptRepository)(nil)
