package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/safetrack-hq/escalator/internal/models"
)

// PushSender delivers notifications through a mobile push gateway.
type PushSender struct {
	config     WebhookConfig
	addresses  AddressBook
	httpClient *http.Client
}

// NewPushSender creates a push sender.
func NewPushSender(config WebhookConfig, addresses AddressBook) (*PushSender, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid push config: %w", err)
	}

	return &PushSender{
		config:     config,
		addresses:  addresses,
		httpClient: newWebhookClient(),
	}, nil
}

// Channel returns the push channel.
func (p *PushSender) Channel() models.Channel {
	return models.ChannelPush
}

// pushPayload is the push gateway request body.
type pushPayload struct {
	Token    string `json:"token"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Priority string `json:"priority,omitempty"`
}

// Send delivers one notification to the user's registered device.
func (p *PushSender) Send(ctx context.Context, userID, subject, body string, priority models.Severity) error {
	token, err := p.addresses.PushTokenFor(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve push token for user %s: %w", userID, err)
	}
	if token == "" {
		return fmt.Errorf("user %s has no registered device", userID)
	}

	return postJSON(ctx, p.httpClient, p.config.URL, p.config.APIKey, pushPayload{
		Token:    token,
		Title:    subject,
		Body:     body,
		Priority: string(priority),
	})
}

// Close is a no-op for the push sender.
func (p *PushSender) Close() error {
	return nil
}
