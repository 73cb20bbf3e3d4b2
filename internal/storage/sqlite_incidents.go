package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/safetrack-hq/escalator/internal/engine"
	"github.com/safetrack-hq/escalator/internal/models"
)

type sqliteIncidentRepo struct {
	db *sql.DB
}

func (r *sqliteIncidentRepo) Create(ctx context.Context, inc *models.IncidentSnapshot) error {
	query := `
		INSERT INTO incidents (id, title, severity, status, department,
			location, created_at, last_response_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		inc.ID, nullString(inc.Title), inc.Severity, inc.Status,
		nullString(inc.Department), nullString(inc.Location),
		inc.CreatedAt, nullTime(inc.LastResponseAt),
	)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

func (r *sqliteIncidentRepo) GetByID(ctx context.Context, id string) (*models.IncidentSnapshot, error) {
	query := `
		SELECT id, title, severity, status, department, location,
			created_at, last_response_at
		FROM incidents WHERE id = ?
	`
	inc, err := scanIncident(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, engine.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return inc, nil
}

// GetIncident implements engine.IncidentStore.
func (r *sqliteIncidentRepo) GetIncident(ctx context.Context, id string) (*models.IncidentSnapshot, error) {
	return r.GetByID(ctx, id)
}

func (r *sqliteIncidentRepo) FindOverdue(ctx context.Context, lastActivityBefore time.Time, severities []models.Severity, statuses []models.Status) ([]*models.IncidentSnapshot, error) {
	var where []string
	var args []any

	// Last activity is the last response, falling back to creation.
	where = append(where, "COALESCE(last_response_at, created_at) < ?")
	args = append(args, lastActivityBefore)

	if len(severities) > 0 {
		placeholders := make([]string, len(severities))
		for i, s := range severities {
			placeholders[i] = "?"
			args = append(args, s)
		}
		where = append(where, fmt.Sprintf("severity IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, s := range statuses {
			placeholders[i] = "?"
			args = append(args, s)
		}
		where = append(where, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	query := fmt.Sprintf(`
		SELECT id, title, severity, status, department, location,
			created_at, last_response_at
		FROM incidents WHERE %s ORDER BY created_at
	`, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query overdue incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*models.IncidentSnapshot
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*models.IncidentSnapshot, error) {
	inc := &models.IncidentSnapshot{}
	var title, department, location sql.NullString
	var lastResponseAt sql.NullTime

	err := row.Scan(&inc.ID, &title, &inc.Severity, &inc.Status,
		&department, &location, &inc.CreatedAt, &lastResponseAt)
	if err != nil {
		return nil, err
	}

	inc.Title = title.String
	inc.Department = department.String
	inc.Location = location.String
	if lastResponseAt.Valid {
		t := lastResponseAt.Time
		inc.LastResponseAt = &t
	}
	return inc, nil
}
