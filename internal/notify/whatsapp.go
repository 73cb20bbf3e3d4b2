package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/safetrack-hq/escalator/internal/models"
)

// WhatsAppSender delivers notifications through a WhatsApp Business
// API gateway.
type WhatsAppSender struct {
	config     WebhookConfig
	addresses  AddressBook
	httpClient *http.Client
}

// NewWhatsAppSender creates a WhatsApp sender.
func NewWhatsAppSender(config WebhookConfig, addresses AddressBook) (*WhatsAppSender, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid whatsapp config: %w", err)
	}

	return &WhatsAppSender{
		config:     config,
		addresses:  addresses,
		httpClient: newWebhookClient(),
	}, nil
}

// Channel returns the WhatsApp channel.
func (w *WhatsAppSender) Channel() models.Channel {
	return models.ChannelWhatsApp
}

// whatsappPayload is the WhatsApp gateway request body.
type whatsappPayload struct {
	To   string       `json:"to"`
	Type string       `json:"type"`
	Text whatsappText `json:"text"`
}

type whatsappText struct {
	Body string `json:"body"`
}

// Send delivers one notification to the user's WhatsApp number.
func (w *WhatsAppSender) Send(ctx context.Context, userID, subject, body string, priority models.Severity) error {
	phone, err := w.addresses.PhoneFor(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve phone for user %s: %w", userID, err)
	}
	if phone == "" {
		return fmt.Errorf("user %s has no phone number", userID)
	}

	return postJSON(ctx, w.httpClient, w.config.URL, w.config.APIKey, whatsappPayload{
		To:   phone,
		Type: "text",
		Text: whatsappText{Body: "*" + subject + "*\n\n" + body},
	})
}

// Close is a no-op for the WhatsApp sender.
func (w *WhatsAppSender) Close() error {
	return nil
}
