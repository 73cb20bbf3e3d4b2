package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safetrack-hq/escalator/internal/models"
)

// ErrUserNotFound is returned when a directory user id is unknown.
var ErrUserNotFound = errors.New("directory user not found")

type sqliteDirectoryRepo struct {
	db *sql.DB
}

func (r *sqliteDirectoryRepo) CreateUser(ctx context.Context, user *DirectoryUser) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO directory_users (id, name, email, phone, push_token, role,
			department, is_management, is_emergency_contact, is_regulatory, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, nullString(user.Email), nullString(user.Phone),
		nullString(user.PushToken), nullString(user.Role), nullString(user.Department),
		user.IsManagement, user.IsEmergencyContact, user.IsRegulatory, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create directory user: %w", err)
	}
	return nil
}

func (r *sqliteDirectoryRepo) ListUsers(ctx context.Context) ([]*DirectoryUser, error) {
	query := `
		SELECT id, name, email, phone, push_token, role, department,
			is_management, is_emergency_contact, is_regulatory, created_at
		FROM directory_users ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list directory users: %w", err)
	}
	defer rows.Close()

	var users []*DirectoryUser
	for rows.Next() {
		u := &DirectoryUser{}
		var email, phone, pushToken, role, department sql.NullString
		err := rows.Scan(&u.ID, &u.Name, &email, &phone, &pushToken, &role,
			&department, &u.IsManagement, &u.IsEmergencyContact, &u.IsRegulatory, &u.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan directory user: %w", err)
		}
		u.Email = email.String
		u.Phone = phone.String
		u.PushToken = pushToken.String
		u.Role = role.String
		u.Department = department.String
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *sqliteDirectoryRepo) UsersInRole(ctx context.Context, role string) ([]string, error) {
	return r.queryIDs(ctx,
		"SELECT id FROM directory_users WHERE role = ? ORDER BY id", role)
}

func (r *sqliteDirectoryRepo) UsersInDepartment(ctx context.Context, department string) ([]string, error) {
	return r.queryIDs(ctx,
		"SELECT id FROM directory_users WHERE department = ? ORDER BY id", department)
}

// ManagementTargets resolves the management escalation set for an
// incident: management users in the incident's department, falling
// back to all management users when the incident has no department or
// the department has none.
func (r *sqliteDirectoryRepo) ManagementTargets(ctx context.Context, inc *models.IncidentSnapshot) ([]string, error) {
	if inc != nil && inc.Department != "" {
		ids, err := r.queryIDs(ctx,
			"SELECT id FROM directory_users WHERE is_management = 1 AND department = ? ORDER BY id",
			inc.Department)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}

	return r.queryIDs(ctx,
		"SELECT id FROM directory_users WHERE is_management = 1 ORDER BY id")
}

func (r *sqliteDirectoryRepo) EmergencyContacts(ctx context.Context) ([]string, error) {
	return r.queryIDs(ctx,
		"SELECT id FROM directory_users WHERE is_emergency_contact = 1 ORDER BY id")
}

func (r *sqliteDirectoryRepo) RegulatoryTeam(ctx context.Context) ([]string, error) {
	return r.queryIDs(ctx,
		"SELECT id FROM directory_users WHERE is_regulatory = 1 ORDER BY id")
}

func (r *sqliteDirectoryRepo) EmailFor(ctx context.Context, userID string) (string, error) {
	return r.queryAddress(ctx, "email", userID)
}

func (r *sqliteDirectoryRepo) PhoneFor(ctx context.Context, userID string) (string, error) {
	return r.queryAddress(ctx, "phone", userID)
}

func (r *sqliteDirectoryRepo) PushTokenFor(ctx context.Context, userID string) (string, error) {
	return r.queryAddress(ctx, "push_token", userID)
}

// queryAddress fetches one address column for a user. column is one of
// a fixed set of identifiers, never user input.
func (r *sqliteDirectoryRepo) queryAddress(ctx context.Context, column, userID string) (string, error) {
	var value sql.NullString
	query := fmt.Sprintf("SELECT %s FROM directory_users WHERE id = ?", column)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("query %s for user %s: %w", column, userID, err)
	}
	return value.String, nil
}

func (r *sqliteDirectoryRepo) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query directory: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan directory user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
