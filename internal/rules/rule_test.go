package rules

import (
	"strings"
	"testing"
	"time"
)

func validAction() Action {
	return Action{
		Type:     "notify_user",
		Target:   "user-1",
		Channels: []string{"email"},
	}
}

func TestRuleValidation(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
		errMsg  string
	}{
		{
			name:    "empty id",
			rule:    Rule{},
			wantErr: true,
			errMsg:  "id is required",
		},
		{
			name: "missing name",
			rule: Rule{
				ID: "r1",
			},
			wantErr: true,
			errMsg:  "name is required",
		},
		{
			name: "no actions",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{Severities: []string{"critical"}},
			},
			wantErr: true,
			errMsg:  "at least one action is required",
		},
		{
			name: "invalid severity",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{Severities: []string{"catastrophic"}},
				Actions: []Action{validAction()},
			},
			wantErr: true,
			errMsg:  "invalid severity",
		},
		{
			name: "invalid status",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{Statuses: []string{"pending"}},
				Actions: []Action{validAction()},
			},
			wantErr: true,
			errMsg:  "invalid status",
		},
		{
			name: "invalid no-response duration",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{AfterNoResponse: "soon"},
				Actions: []Action{validAction()},
			},
			wantErr: true,
			errMsg:  "invalid after_no_response",
		},
		{
			name: "negative no-response duration",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{AfterNoResponse: "-1h"},
				Actions: []Action{validAction()},
			},
			wantErr: true,
			errMsg:  "must be positive",
		},
		{
			name: "invalid expression",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{Expression: "severity ==="},
				Actions: []Action{validAction()},
			},
			wantErr: true,
			errMsg:  "invalid expression",
		},
		{
			name: "empty trigger without catch_all",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Actions: []Action{validAction()},
			},
			wantErr: true,
			errMsg:  "catch_all",
		},
		{
			name: "empty trigger with catch_all",
			rule: Rule{
				ID:       "r1",
				Name:     "test",
				CatchAll: true,
				Actions:  []Action{validAction()},
			},
		},
		{
			name: "invalid action type",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{Severities: []string{"critical"}},
				Actions: []Action{{Type: "page_everyone", Channels: []string{"email"}}},
			},
			wantErr: true,
			errMsg:  "invalid action type",
		},
		{
			name: "notify action without target",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{Severities: []string{"critical"}},
				Actions: []Action{{Type: "notify_role", Channels: []string{"email"}}},
			},
			wantErr: true,
			errMsg:  "target is required",
		},
		{
			name: "notify action without channels",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{Severities: []string{"critical"}},
				Actions: []Action{{Type: "notify_user", Target: "user-1"}},
			},
			wantErr: true,
			errMsg:  "at least one channel is required",
		},
		{
			name: "invalid channel",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{Severities: []string{"critical"}},
				Actions: []Action{{Type: "notify_user", Target: "user-1", Channels: []string{"fax"}}},
			},
			wantErr: true,
			errMsg:  "invalid channel",
		},
		{
			name: "invalid delay",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{Severities: []string{"critical"}},
				Actions: []Action{{
					Type: "notify_user", Target: "user-1",
					Channels: []string{"email"}, Delay: "later",
				}},
			},
			wantErr: true,
			errMsg:  "invalid delay",
		},
		{
			name: "emergency action needs no target or channels",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{Severities: []string{"emergency"}},
				Actions: []Action{{Type: "send_emergency_alert"}},
			},
		},
		{
			name: "regulatory action needs no target or channels",
			rule: Rule{
				ID:      "r1",
				Name:    "test",
				Trigger: Trigger{Severities: []string{"critical"}},
				Actions: []Action{{Type: "send_regulatory"}},
			},
		},
		{
			name: "valid full rule",
			rule: Rule{
				ID:       "r1",
				Name:     "critical open incidents",
				Priority: 10,
				Trigger: Trigger{
					Severities:      []string{"critical", "emergency"},
					Statuses:        []string{"open"},
					AfterNoResponse: "2h",
					Departments:     []string{"platform"},
					Locations:       []string{"eu-west"},
					Expression:      `department != "sandbox"`,
				},
				Actions: []Action{
					{Type: "notify_role", Target: "on-call", Channels: []string{"email", "sms"}},
					{Type: "escalate_to_manager", Target: "mgr-1", Channels: []string{"email"}, Delay: "15m"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRuleValidationCompilesInternalState(t *testing.T) {
	rule := Rule{
		ID:   "r1",
		Name: "test",
		Trigger: Trigger{
			Severities:      []string{"critical"},
			Statuses:        []string{"open", "in_progress"},
			AfterNoResponse: "24h",
		},
		Actions: []Action{
			{Type: "notify_user", Target: "user-1", Channels: []string{"email", "push"}, Delay: "5m"},
		},
	}

	if err := rule.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if got := len(rule.Trigger.SeveritySet()); got != 1 {
		t.Errorf("severity set size = %d, want 1", got)
	}
	if got := len(rule.Trigger.StatusSet()); got != 2 {
		t.Errorf("status set size = %d, want 2", got)
	}
	if got := rule.Trigger.AfterNoResponseDuration(); got != 24*time.Hour {
		t.Errorf("after_no_response = %v, want 24h", got)
	}
	if got := rule.Actions[0].DelayDuration(); got != 5*time.Minute {
		t.Errorf("delay = %v, want 5m", got)
	}
	if got := len(rule.Actions[0].ChannelSet()); got != 2 {
		t.Errorf("channel set size = %d, want 2", got)
	}
}

func TestRuleIsEnabled(t *testing.T) {
	enabled := true
	disabled := false

	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{"default", Rule{}, true},
		{"explicitly enabled", Rule{Enabled: &enabled}, true},
		{"explicitly disabled", Rule{Enabled: &disabled}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.IsEnabled(); got != tt.want {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
