package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/safetrack-hq/escalator/internal/models"
)

// SMSSender delivers notifications through an SMS gateway webhook.
type SMSSender struct {
	config     WebhookConfig
	addresses  AddressBook
	httpClient *http.Client
}

// NewSMSSender creates an SMS sender.
func NewSMSSender(config WebhookConfig, addresses AddressBook) (*SMSSender, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sms config: %w", err)
	}

	return &SMSSender{
		config:     config,
		addresses:  addresses,
		httpClient: newWebhookClient(),
	}, nil
}

// Channel returns the SMS channel.
func (s *SMSSender) Channel() models.Channel {
	return models.ChannelSMS
}

// smsPayload is the SMS gateway request body.
type smsPayload struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	Priority string `json:"priority,omitempty"`
}

// Send delivers one notification to the user's phone number. SMS has
// no subject line; subject and body are joined.
func (s *SMSSender) Send(ctx context.Context, userID, subject, body string, priority models.Severity) error {
	phone, err := s.addresses.PhoneFor(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve phone for user %s: %w", userID, err)
	}
	if phone == "" {
		return fmt.Errorf("user %s has no phone number", userID)
	}

	return postJSON(ctx, s.httpClient, s.config.URL, s.config.APIKey, smsPayload{
		To:       phone,
		Message:  subject + "\n" + body,
		Priority: string(priority),
	})
}

// Close is a no-op for the SMS sender.
func (s *SMSSender) Close() error {
	return nil
}
