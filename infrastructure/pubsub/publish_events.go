package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

// NewPubSub creates the GCP Pub/Sub client used for publish events.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}

type IPublishEvents interface {
	PostPublished(ctx context.Context, post *model.Post) error
}

// PublishEvents emits a post.published event for downstream consumers
// (analytics, UI refresh). Nil-safe and best-effort.
type PublishEvents struct {
	client *pubsub.Client
	topic  string
}

func NewPublishEvents(client *pubsub.Client, topic string) IPublishEvents {
	if topic == "" {
		topic = "post.published"
	}
	return &PublishEvents{client: client, topic: topic}
}

type publishedEvent struct {
	PostID         string    `json:"post_id"`
	AuthorID       string    `json:"author_id"`
	ExternalPostID string    `json:"external_post_id"`
	PublishedAt    time.Time `json:"published_at"`
}

func (p *PublishEvents) PostPublished(ctx context.Context, post *model.Post) error {
	if p.client == nil {
		logger.GetLogger().Debug("PubSub client is nil - skipping post.published event")
		return nil
	}
	evt := publishedEvent{PostID: post.ID, AuthorID: post.AuthorID}
	if post.ExternalPostID != nil {
		evt.ExternalPostID = *post.ExternalPostID
	}
	if post.PublishedAt != nil {
		evt.PublishedAt = *post.PublishedAt
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	topic := p.client.Topic(p.topic)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := p.client.CreateTopic(ctx, p.topic); err != nil {
			return err
		}
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("serverID", serverID).WithField("post_id", post.ID).Info("post.published event emitted")
	return nil
}
