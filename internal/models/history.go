package models

import "time"

// EscalationHistoryEntry records the outcome of one escalation action
// attempt. Entries are append-only: the engine creates them and never
// updates or deletes them.
type EscalationHistoryEntry struct {
	ID           string     `json:"id"`
	IncidentID   string     `json:"incident_id"`
	RuleID       string     `json:"rule_id,omitempty"` // empty for manual escalations
	RuleName     string     `json:"rule_name,omitempty"`
	ActionType   ActionType `json:"action_type"`
	ActionTarget string     `json:"action_target"`
	Details      string     `json:"details,omitempty"` // error message on failure
	IsSuccessful bool       `json:"is_successful"`
	ExecutedBy   string     `json:"executed_by"`
	ExecutedAt   time.Time  `json:"executed_at"`
}
