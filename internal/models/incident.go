// Package models defines domain models for the escalation engine.
package models

import "time"

// Severity represents incident severity. Severities are ordered:
// Minor < Major < Critical < Emergency.
type Severity string

const (
	SeverityMinor     Severity = "minor"
	SeverityMajor     Severity = "major"
	SeverityCritical  Severity = "critical"
	SeverityEmergency Severity = "emergency"
)

// severityRank maps severities to their position in the ordering.
var severityRank = map[Severity]int{
	SeverityMinor:     0,
	SeverityMajor:     1,
	SeverityCritical:  2,
	SeverityEmergency: 3,
}

// Rank returns the position of the severity in the ordering.
// Unknown severities rank below Minor.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// ParseSeverity converts a string to Severity.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "minor", "MINOR", "Minor":
		return SeverityMinor, true
	case "major", "MAJOR", "Major":
		return SeverityMajor, true
	case "critical", "CRITICAL", "Critical":
		return SeverityCritical, true
	case "emergency", "EMERGENCY", "Emergency":
		return SeverityEmergency, true
	default:
		return "", false
	}
}

// Status represents the lifecycle state of an incident.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Valid reports whether st is a known status.
func (st Status) Valid() bool {
	switch st {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ParseStatus converts a string to Status.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "open", "OPEN", "Open":
		return StatusOpen, true
	case "in_progress", "in-progress", "InProgress", "IN_PROGRESS":
		return StatusInProgress, true
	case "resolved", "RESOLVED", "Resolved":
		return StatusResolved, true
	case "closed", "CLOSED", "Closed":
		return StatusClosed, true
	default:
		return "", false
	}
}

// IncidentSnapshot is a read-only view of an incident as consumed by
// the escalation engine. The incident store owns the record; the engine
// never mutates it.
type IncidentSnapshot struct {
	ID             string     `json:"id"`
	Title          string     `json:"title,omitempty"`
	Severity       Severity   `json:"severity"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	LastResponseAt *time.Time `json:"last_response_at,omitempty"`
	Department     string     `json:"department,omitempty"`
	Location       string     `json:"location,omitempty"`
}

// LastActivity returns the last response time, falling back to the
// creation time when no response has been recorded yet.
func (i *IncidentSnapshot) LastActivity() time.Time {
	if i.LastResponseAt != nil {
		return *i.LastResponseAt
	}
	return i.CreatedAt
}
