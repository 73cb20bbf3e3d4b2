// Package engine implements the escalation rule engine: matching
// escalation rules against incident snapshots, executing their actions
// against the notification gateway, recording every attempt in the
// escalation history, and publishing domain events.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/safetrack-hq/escalator/internal/models"
)

// ErrIncidentNotFound is returned by IncidentStore implementations
// when the incident id is unknown.
var ErrIncidentNotFound = errors.New("incident not found")

// IncidentStore provides read access to incident snapshots. The
// incident store is owned by an external system; the engine never
// writes to it.
type IncidentStore interface {
	// GetIncident returns the snapshot for id, or ErrIncidentNotFound.
	GetIncident(ctx context.Context, id string) (*models.IncidentSnapshot, error)
	// FindOverdue returns incidents whose last activity is before the
	// cutoff, optionally restricted to the given severities and statuses
	// (empty slices mean no restriction).
	FindOverdue(ctx context.Context, lastActivityBefore time.Time, severities []models.Severity, statuses []models.Status) ([]*models.IncidentSnapshot, error)
}

// Directory resolves escalation targets to user ids.
type Directory interface {
	UsersInRole(ctx context.Context, role string) ([]string, error)
	UsersInDepartment(ctx context.Context, department string) ([]string, error)
	ManagementTargets(ctx context.Context, inc *models.IncidentSnapshot) ([]string, error)
	EmergencyContacts(ctx context.Context) ([]string, error)
	RegulatoryTeam(ctx context.Context) ([]string, error)
}

// NotificationGateway delivers a notification to one user over a set
// of channels. Implementations report per-channel outcomes: failed
// lists channels that did not deliver, and err is non-nil only when no
// channel delivered.
type NotificationGateway interface {
	SendMultiChannel(ctx context.Context, userID, subject, body string, channels []models.Channel, priority models.Severity) (failed []models.Channel, err error)
}

// TemplateRenderer renders a notification template into a subject and body.
type TemplateRenderer interface {
	Render(templateID string, data map[string]any) (subject, body string, err error)
}

// HistorySink persists escalation history entries.
type HistorySink interface {
	Append(ctx context.Context, entry *models.EscalationHistoryEntry) error
}
