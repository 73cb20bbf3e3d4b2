package models

import "time"

// EventType identifies a domain event emitted by the engine.
type EventType string

const (
	// EventEscalationTriggered is published after a rule's actions ran
	// (or a manual escalation completed).
	EventEscalationTriggered EventType = "escalation_triggered"
	// EventEmergencyAlertTriggered is published when an emergency alert
	// action fires.
	EventEmergencyAlertTriggered EventType = "emergency_alert_triggered"
	// EventRegulatoryReportRequired is published when a regulatory
	// action fires; Deadline carries the reporting deadline.
	EventRegulatoryReportRequired EventType = "regulatory_report_required"
)

// Event is a domain notification for other subsystems. Publication is
// fire-and-forget; no subscriber result flows back into the engine.
type Event struct {
	Type        EventType  `json:"type"`
	IncidentID  string     `json:"incident_id"`
	RuleID      string     `json:"rule_id,omitempty"` // empty for manual escalations
	Description string     `json:"description,omitempty"`
	Targets     []string   `json:"targets,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}
