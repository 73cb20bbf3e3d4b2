package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookConfig holds settings shared by the HTTP gateway senders.
type WebhookConfig struct {
	URL    string // provider endpoint
	APIKey string // bearer token for the provider (optional)
}

// Validate validates the webhook configuration.
func (c *WebhookConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("gateway URL is required")
	}
	if !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("gateway URL must use HTTPS")
	}
	return nil
}

// postJSON posts a JSON payload to a provider endpoint and fails on
// any non-2xx response.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("gateway error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// newWebhookClient returns the HTTP client used by gateway senders.
func newWebhookClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
	}
}
