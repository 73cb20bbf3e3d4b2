package notify

import (
	"strings"
	"testing"

	"github.com/safetrack-hq/escalator/internal/models"
)

func TestEmailConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  EmailConfig
		wantErr bool
	}{
		{
			name:   "valid",
			config: EmailConfig{Host: "smtp.example.com", Port: 587, From: "alerts@example.com"},
		},
		{
			name:    "missing host",
			config:  EmailConfig{Port: 587, From: "alerts@example.com"},
			wantErr: true,
		},
		{
			name:    "missing port",
			config:  EmailConfig{Host: "smtp.example.com", From: "alerts@example.com"},
			wantErr: true,
		},
		{
			name:    "missing from",
			config:  EmailConfig{Host: "smtp.example.com", Port: 587},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewEmailSenderRejectsInvalidConfig(t *testing.T) {
	if _, err := NewEmailSender(EmailConfig{}, nil); err == nil {
		t.Fatal("expected config error")
	}
}

func TestEmailBuildMessage(t *testing.T) {
	sender, err := NewEmailSender(EmailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "alerts@example.com",
	}, nil)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	msg := string(sender.buildMessage("oncall@example.com", "Incident INC-1", "details here", models.SeverityMajor))
	for _, want := range []string{
		"From: alerts@example.com\r\n",
		"To: oncall@example.com\r\n",
		"Subject: Incident INC-1\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n",
		"details here",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "X-Priority") {
		t.Error("major severity should not set the priority header")
	}
}

func TestEmailBuildMessageCriticalPriority(t *testing.T) {
	sender, err := NewEmailSender(EmailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "alerts@example.com",
	}, nil)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	msg := string(sender.buildMessage("oncall@example.com", "s", "b", models.SeverityCritical))
	if !strings.Contains(msg, "X-Priority: 1\r\n") || !strings.Contains(msg, "Importance: high\r\n") {
		t.Errorf("critical message missing priority headers:\n%s", msg)
	}
}
