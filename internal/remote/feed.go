package remote

import (
	"context"
	"encoding/json"

	"example.com/tableside/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Change is one row-change notification from the backend. It carries no
// delta: any change triggers a full list refetch of that entity kind.
type Change struct {
	TenantID string `json:"tenant"`
	Kind     string `json:"kind"`
}

// ChangeHandler reacts to one change notification.
type ChangeHandler func(ctx context.Context, change Change) error

// FeedListener receives row-change notifications from the backend's change
// feed queue. Without a connection string it runs disabled: Listen blocks
// until the context is cancelled so the polling heartbeat remains the only
// sync trigger.
type FeedListener struct {
	client  *azservicebus.Client
	queue   string
	enabled bool
}

// NewFeedListener creates a change feed listener.
func NewFeedListener(cfg config.AzureConfig) (*FeedListener, error) {
	if cfg.ConnStr == "" {
		log.Warn().Msg("Change feed connection string not set, falling back to polling only")
		return &FeedListener{enabled: false}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create change feed client")
	}

	return &FeedListener{client: client, queue: cfg.FeedQueue, enabled: true}, nil
}

// Listen receives change notifications until ctx is cancelled. Messages that
// fail to decode or whose handler errors are abandoned back to the queue;
// everything else is completed.
func (f *FeedListener) Listen(ctx context.Context, tenantID string, handle ChangeHandler) error {
	if !f.enabled {
		<-ctx.Done()
		return nil
	}

	receiver, err := f.client.NewReceiverForQueue(f.queue, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create change feed receiver")
	}
	defer receiver.Close(context.Background())

	log.Info().Str("queue", f.queue).Msg("Listening for change feed notifications")

	for {
		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to receive change feed messages")
		}

		for _, message := range messages {
			var change Change
			if err := json.Unmarshal(message.Body, &change); err != nil {
				log.Warn().Err(err).Msg("Discarding malformed change notification")
				if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
					log.Error().Err(err).Msg("Failed to complete malformed change notification")
				}
				continue
			}

			// Other tenants' changes are completed without a pull.
			if change.TenantID != "" && change.TenantID != tenantID {
				if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
					log.Error().Err(err).Msg("Failed to complete foreign change notification")
				}
				continue
			}

			if err := handle(ctx, change); err != nil {
				log.Error().Err(err).Str("kind", change.Kind).Msg("Failed to handle change notification")
				if err := receiver.AbandonMessage(ctx, message, nil); err != nil {
					log.Error().Err(err).Msg("Failed to abandon change notification")
				}
				continue
			}

			if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
				log.Error().Err(err).Msg("Failed to complete change notification")
			}
		}
	}
}

// Close releases the underlying client.
func (f *FeedListener) Close() error {
	if !f.enabled || f.client == nil {
		return nil
	}
	return f.client.Close(context.Background())
}
