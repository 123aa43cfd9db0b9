package servicebus

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"social-publisher/infrastructure/logger"
)

// NewServiceBus connects to the Azure Service Bus namespace using the
// ambient Azure credential chain.
func NewServiceBus(_ context.Context, namespace string) (*azservicebus.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

type INotificationBus interface {
	PublishFailed(ctx context.Context, postID, kind, detail string) error
}

// NotificationBus pushes fatal publish failures onto an operator queue.
// Nil-safe and best-effort; a lost notification never fails a publish.
type NotificationBus struct {
	client *azservicebus.Client
	queue  string
}

func NewNotificationBus(client *azservicebus.Client, queue string) INotificationBus {
	if queue == "" {
		queue = "publish-failures"
	}
	return &NotificationBus{client: client, queue: queue}
}

func (b *NotificationBus) PublishFailed(ctx context.Context, postID, kind, detail string) error {
	if b.client == nil {
		logger.GetLogger().Debug("Service Bus client is nil - skipping failure notification")
		return nil
	}
	sender, err := b.client.NewSender(b.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if err := sender.Close(context.Background()); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}()

	body, err := json.Marshal(map[string]string{
		"post_id": postID,
		"kind":    kind,
		"detail":  detail,
	})
	if err != nil {
		return err
	}
	if err := sender.SendMessage(ctx, &azservicebus.Message{Body: body}, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
