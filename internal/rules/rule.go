// Package rules defines escalation rules: who gets notified about an
// incident, over which channels, and in what order. Rules are loaded
// from YAML, validated and compiled once, and treated as immutable for
// the lifetime of an evaluation pass.
package rules

import (
	"fmt"
	"time"

	"github.com/safetrack-hq/escalator/internal/models"
)

// Trigger is the multi-dimensional predicate deciding whether a rule
// applies to an incident. Every dimension is optional; an empty
// dimension matches any incident. All configured dimensions must pass.
type Trigger struct {
	// Severities restricts matching to the listed severities.
	Severities []string `yaml:"severities,omitempty"`
	// Statuses restricts matching to the listed statuses.
	Statuses []string `yaml:"statuses,omitempty"`
	// AfterNoResponse requires the incident to have had no response
	// for at least this duration (e.g. "24h").
	AfterNoResponse string `yaml:"after_no_response,omitempty"`
	// Departments restricts matching to incidents in the listed departments.
	Departments []string `yaml:"departments,omitempty"`
	// Locations are substrings matched case-insensitively against the
	// incident location. An incident without a location cannot violate
	// this dimension.
	Locations []string `yaml:"locations,omitempty"`
	// Expression is an optional expr-lang predicate over the incident
	// snapshot, AND-ed with the other dimensions.
	Expression string `yaml:"expression,omitempty"`

	// severities is the parsed severity set (internal use).
	severities []models.Severity
	// statuses is the parsed status set (internal use).
	statuses []models.Status
	// afterNoResponse is the parsed duration (internal use).
	afterNoResponse time.Duration
	// exprMatcher is the compiled expression (internal use).
	exprMatcher *ExprMatcher
}

// Action is a single notification-producing operation attached to a
// rule. Actions execute in declared order.
type Action struct {
	// Type selects the operation (notify_user, notify_role,
	// notify_department, escalate_to_manager, send_emergency_alert,
	// send_regulatory).
	Type string `yaml:"type"`
	// Target is the user id, role name, or department name, depending
	// on Type. Unused for emergency and regulatory actions.
	Target string `yaml:"target,omitempty"`
	// Template is the notification template id. Falls back to a
	// type-specific default when empty.
	Template string `yaml:"template,omitempty"`
	// Channels lists delivery channels (email, sms, whatsapp, push).
	Channels []string `yaml:"channels,omitempty"`
	// Params is merged into the template data map.
	Params map[string]string `yaml:"params,omitempty"`
	// Delay postpones this action (and everything after it in the same
	// rule) by the given duration (e.g. "15m").
	Delay string `yaml:"delay,omitempty"`

	// actionType is the parsed type (internal use).
	actionType models.ActionType
	// channels is the parsed channel set (internal use).
	channels []models.Channel
	// delay is the parsed delay duration (internal use).
	delay time.Duration
}

// Rule is a named, prioritized trigger plus ordered action list.
type Rule struct {
	// ID is the unique identifier for the rule.
	ID string `yaml:"id"`
	// Name is a human-readable name.
	Name string `yaml:"name"`
	// Description explains what the rule escalates.
	Description string `yaml:"description,omitempty"`
	// Priority orders rule execution; lower values run first.
	Priority int `yaml:"priority"`
	// Trigger decides which incidents the rule applies to.
	Trigger Trigger `yaml:"trigger"`
	// Actions run in declared order when the rule matches.
	Actions []Action `yaml:"actions"`
	// CatchAll must be set when every trigger dimension is empty,
	// marking the rule as an intentional match-everything rule.
	CatchAll bool `yaml:"catch_all,omitempty"`
	// Enabled controls whether the rule participates in evaluation.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled returns whether the rule is enabled.
func (r *Rule) IsEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// Validate validates the rule and compiles its internal state.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if r.Name == "" {
		return fmt.Errorf("rule name is required for rule %q", r.ID)
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("at least one action is required for rule %q", r.ID)
	}

	if err := r.Trigger.validate(r.ID); err != nil {
		return err
	}

	if r.Trigger.empty() && !r.CatchAll {
		return fmt.Errorf("rule %q has no trigger dimensions; set catch_all to match every incident", r.ID)
	}

	for i := range r.Actions {
		if err := r.Actions[i].validate(r.ID, i); err != nil {
			return err
		}
	}

	return nil
}

func (t *Trigger) validate(ruleID string) error {
	t.severities = t.severities[:0]
	for _, s := range t.Severities {
		sev, ok := models.ParseSeverity(s)
		if !ok {
			return fmt.Errorf("invalid severity %q for rule %q", s, ruleID)
		}
		t.severities = append(t.severities, sev)
	}

	t.statuses = t.statuses[:0]
	for _, s := range t.Statuses {
		st, ok := models.ParseStatus(s)
		if !ok {
			return fmt.Errorf("invalid status %q for rule %q", s, ruleID)
		}
		t.statuses = append(t.statuses, st)
	}

	if t.AfterNoResponse != "" {
		d, err := time.ParseDuration(t.AfterNoResponse)
		if err != nil {
			return fmt.Errorf("invalid after_no_response %q for rule %q: %w", t.AfterNoResponse, ruleID, err)
		}
		if d <= 0 {
			return fmt.Errorf("after_no_response must be positive for rule %q", ruleID)
		}
		t.afterNoResponse = d
	}

	if t.Expression != "" {
		m, err := NewExprMatcher(t.Expression)
		if err != nil {
			return fmt.Errorf("invalid expression for rule %q: %w", ruleID, err)
		}
		t.exprMatcher = m
	}

	return nil
}

// empty reports whether no trigger dimension is configured.
func (t *Trigger) empty() bool {
	return len(t.Severities) == 0 &&
		len(t.Statuses) == 0 &&
		t.AfterNoResponse == "" &&
		len(t.Departments) == 0 &&
		len(t.Locations) == 0 &&
		t.Expression == ""
}

func (a *Action) validate(ruleID string, index int) error {
	a.actionType = models.ActionType(a.Type)
	if !a.actionType.Valid() {
		return fmt.Errorf("invalid action type %q at index %d for rule %q", a.Type, index, ruleID)
	}

	switch a.actionType {
	case models.ActionNotifyUser, models.ActionNotifyRole, models.ActionNotifyDepartment:
		if a.Target == "" {
			return fmt.Errorf("target is required for %s action at index %d for rule %q", a.Type, index, ruleID)
		}
	}

	// Emergency and regulatory actions carry fixed channel sets; for
	// everything else the configured set must be non-empty and valid.
	switch a.actionType {
	case models.ActionSendEmergencyAlert, models.ActionSendRegulatory:
	default:
		if len(a.Channels) == 0 {
			return fmt.Errorf("at least one channel is required for action at index %d for rule %q", index, ruleID)
		}
	}

	a.channels = a.channels[:0]
	for _, c := range a.Channels {
		ch, ok := models.ParseChannel(c)
		if !ok {
			return fmt.Errorf("invalid channel %q at index %d for rule %q", c, index, ruleID)
		}
		a.channels = append(a.channels, ch)
	}

	if a.Delay != "" {
		d, err := time.ParseDuration(a.Delay)
		if err != nil {
			return fmt.Errorf("invalid delay %q at index %d for rule %q: %w", a.Delay, index, ruleID, err)
		}
		if d < 0 {
			return fmt.Errorf("delay must not be negative at index %d for rule %q", index, ruleID)
		}
		a.delay = d
	}

	return nil
}

// ActionType returns the parsed action type.
func (a *Action) ActionType() models.ActionType {
	return a.actionType
}

// ChannelSet returns the parsed channel set.
func (a *Action) ChannelSet() []models.Channel {
	return a.channels
}

// DelayDuration returns the parsed delay.
func (a *Action) DelayDuration() time.Duration {
	return a.delay
}

// SeveritySet returns the parsed severity set.
func (t *Trigger) SeveritySet() []models.Severity {
	return t.severities
}

// StatusSet returns the parsed status set.
func (t *Trigger) StatusSet() []models.Status {
	return t.statuses
}

// AfterNoResponseDuration returns the parsed no-response duration.
func (t *Trigger) AfterNoResponseDuration() time.Duration {
	return t.afterNoResponse
}

// Expr returns the compiled expression matcher, or nil.
func (t *Trigger) Expr() *ExprMatcher {
	return t.exprMatcher
}

// Config is the top-level YAML document for a rules file.
type Config struct {
	Rules []*Rule `yaml:"rules"`
}
