package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/safetrack-hq/escalator/internal/models"
)

type fakeAddressBook struct {
	email string
	phone string
	token string
	err   error
}

func (f *fakeAddressBook) EmailFor(ctx context.Context, userID string) (string, error) {
	return f.email, f.err
}

func (f *fakeAddressBook) PhoneFor(ctx context.Context, userID string) (string, error) {
	return f.phone, f.err
}

func (f *fakeAddressBook) PushTokenFor(ctx context.Context, userID string) (string, error) {
	return f.token, f.err
}

func TestWebhookConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  WebhookConfig
		wantErr string
	}{
		{
			name:   "valid",
			config: WebhookConfig{URL: "https://sms.example.com/send", APIKey: "k"},
		},
		{
			name:   "api key optional",
			config: WebhookConfig{URL: "https://sms.example.com/send"},
		},
		{
			name:    "missing url",
			config:  WebhookConfig{},
			wantErr: "gateway URL is required",
		},
		{
			name:    "plain http rejected",
			config:  WebhookConfig{URL: "http://sms.example.com/send"},
			wantErr: "must use HTTPS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestPostJSON(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	err := postJSON(context.Background(), server.Client(), server.URL, "secret-key",
		map[string]string{"to": "+15550100"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotPayload["to"] != "+15550100" {
		t.Errorf("payload = %v", gotPayload)
	}
}

func TestPostJSONGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream unavailable")
	}))
	defer server.Close()

	err := postJSON(context.Background(), server.Client(), server.URL, "", map[string]string{})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream unavailable") {
		t.Errorf("err = %v", err)
	}
}

func TestSMSSenderSend(t *testing.T) {
	var got smsPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
	}))
	defer server.Close()

	sender := &SMSSender{
		config:     WebhookConfig{URL: server.URL},
		addresses:  &fakeAddressBook{phone: "+15550100"},
		httpClient: server.Client(),
	}

	err := sender.Send(context.Background(), "u1", "Incident INC-1", "details", models.SeverityCritical)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.To != "+15550100" {
		t.Errorf("to = %q", got.To)
	}
	if !strings.Contains(got.Message, "Incident INC-1") || !strings.Contains(got.Message, "details") {
		t.Errorf("message = %q", got.Message)
	}
	if got.Priority != "critical" {
		t.Errorf("priority = %q", got.Priority)
	}
}

func TestSMSSenderMissingPhone(t *testing.T) {
	sender := &SMSSender{
		config:     WebhookConfig{URL: "https://sms.example.com/send"},
		addresses:  &fakeAddressBook{},
		httpClient: newWebhookClient(),
	}

	if err := sender.Send(context.Background(), "u1", "s", "b", models.SeverityMajor); err == nil {
		t.Fatal("expected error for user without a phone number")
	}
}
