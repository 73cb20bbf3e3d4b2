// Package storage provides database storage interfaces and
// implementations for the escalation engine.
package storage

import (
	"context"
	"time"

	"github.com/safetrack-hq/escalator/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Incidents() IncidentRepository
	History() HistoryRepository
	Directory() DirectoryRepository
}

// IncidentRepository defines read access to the shared incident store.
// The engine only reads incidents; Create exists for seeding and tests.
type IncidentRepository interface {
	Create(ctx context.Context, inc *models.IncidentSnapshot) error
	GetByID(ctx context.Context, id string) (*models.IncidentSnapshot, error)
	// GetIncident implements engine.IncidentStore.
	GetIncident(ctx context.Context, id string) (*models.IncidentSnapshot, error)
	// FindOverdue returns incidents whose last activity (last response,
	// or creation when none) is before the cutoff. Empty severity or
	// status slices mean no restriction on that dimension.
	FindOverdue(ctx context.Context, lastActivityBefore time.Time, severities []models.Severity, statuses []models.Status) ([]*models.IncidentSnapshot, error)
}

// HistoryRepository defines operations for the escalation history log.
// Entries are append-only.
type HistoryRepository interface {
	Append(ctx context.Context, entry *models.EscalationHistoryEntry) error
	List(ctx context.Context, limit, offset int) ([]*models.EscalationHistoryEntry, int64, error)
	ListByIncident(ctx context.Context, incidentID string, limit, offset int) ([]*models.EscalationHistoryEntry, int64, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// DirectoryRepository resolves escalation targets and channel
// addresses from the user directory.
type DirectoryRepository interface {
	CreateUser(ctx context.Context, user *DirectoryUser) error
	ListUsers(ctx context.Context) ([]*DirectoryUser, error)

	UsersInRole(ctx context.Context, role string) ([]string, error)
	UsersInDepartment(ctx context.Context, department string) ([]string, error)
	ManagementTargets(ctx context.Context, inc *models.IncidentSnapshot) ([]string, error)
	EmergencyContacts(ctx context.Context) ([]string, error)
	RegulatoryTeam(ctx context.Context) ([]string, error)

	EmailFor(ctx context.Context, userID string) (string, error)
	PhoneFor(ctx context.Context, userID string) (string, error)
	PushTokenFor(ctx context.Context, userID string) (string, error)
}

// DirectoryUser is one entry in the user directory.
type DirectoryUser struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	PushToken          string    `json:"push_token,omitempty"`
	Role               string    `json:"role,omitempty"`
	Department         string    `json:"department,omitempty"`
	IsManagement       bool      `json:"is_management"`
	IsEmergencyContact bool      `json:"is_emergency_contact"`
	IsRegulatory       bool      `json:"is_regulatory"`
	CreatedAt          time.Time `json:"created_at"`
}
