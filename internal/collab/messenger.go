package collab

import (
	"context"
	"encoding/json"
	"time"

	"example.com/tableside/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Messenger delivers outbound customer messages, promotion broadcasts and
// automation notifications.
type Messenger interface {
	Send(ctx context.Context, channel string, body interface{}) error
	Close() error
}

type serviceBusMessenger struct {
	client *azservicebus.Client
	sender *azservicebus.Sender
	queue  string
}

type noopMessenger struct{}

// NewMessenger creates a Service Bus backed messenger. An empty connection
// string yields a messenger that only logs, for offline venues.
func NewMessenger(cfg config.AzureConfig) (Messenger, error) {
	if cfg.ConnStr == "" {
		return &noopMessenger{}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.MessagingQueue, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &serviceBusMessenger{
		client: client,
		sender: sender,
		queue:  cfg.MessagingQueue,
	}, nil
}

func (m *serviceBusMessenger) Send(ctx context.Context, channel string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message body")
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"channel": channel,
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	}

	return m.sender.SendMessage(ctx, msg, nil)
}

func (m *serviceBusMessenger) Close() error {
	if m.sender != nil {
		if err := m.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if m.client != nil {
		return m.client.Close(context.Background())
	}
	return nil
}

func (m *noopMessenger) Send(ctx context.Context, channel string, body interface{}) error {
	log.Info().Str("channel", channel).Interface("body", body).Msg("Messaging disabled, dropping message")
	return nil
}

func (m *noopMessenger) Close() error { return nil }
