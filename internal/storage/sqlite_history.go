package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safetrack-hq/escalator/internal/models"
)

type sqliteHistoryRepo struct {
	db *sql.DB
}

func (r *sqliteHistoryRepo) Append(ctx context.Context, entry *models.EscalationHistoryEntry) error {
	query := `
		INSERT INTO escalation_history (id, incident_id, rule_id, rule_name,
			action_type, action_target, details, is_successful, executed_by, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.IncidentID, nullString(entry.RuleID), nullString(entry.RuleName),
		entry.ActionType, nullString(entry.ActionTarget), nullString(entry.Details),
		entry.IsSuccessful, entry.ExecutedBy, entry.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("append escalation history: %w", err)
	}
	return nil
}

func (r *sqliteHistoryRepo) List(ctx context.Context, limit, offset int) ([]*models.EscalationHistoryEntry, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM escalation_history").Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count escalation history: %w", err)
	}

	query := `
		SELECT id, incident_id, rule_id, rule_name, action_type, action_target,
			details, is_successful, executed_by, executed_at
		FROM escalation_history ORDER BY executed_at DESC LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query escalation history: %w", err)
	}
	defer rows.Close()

	entries, err := r.scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, rows.Err()
}

func (r *sqliteHistoryRepo) ListByIncident(ctx context.Context, incidentID string, limit, offset int) ([]*models.EscalationHistoryEntry, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM escalation_history WHERE incident_id = ?", incidentID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count escalation history by incident: %w", err)
	}

	query := `
		SELECT id, incident_id, rule_id, rule_name, action_type, action_target,
			details, is_successful, executed_by, executed_at
		FROM escalation_history WHERE incident_id = ?
		ORDER BY executed_at DESC LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, incidentID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query escalation history by incident: %w", err)
	}
	defer rows.Close()

	entries, err := r.scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, rows.Err()
}

func (r *sqliteHistoryRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM escalation_history WHERE executed_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("delete escalation history: %w", err)
	}
	return result.RowsAffected()
}

func (r *sqliteHistoryRepo) scanEntries(rows *sql.Rows) ([]*models.EscalationHistoryEntry, error) {
	var entries []*models.EscalationHistoryEntry
	for rows.Next() {
		e := &models.EscalationHistoryEntry{}
		var ruleID, ruleName, target, details sql.NullString
		err := rows.Scan(&e.ID, &e.IncidentID, &ruleID, &ruleName, &e.ActionType,
			&target, &details, &e.IsSuccessful, &e.ExecutedBy, &e.ExecutedAt)
		if err != nil {
			return nil, fmt.Errorf("scan escalation history: %w", err)
		}
		e.RuleID = ruleID.String
		e.RuleName = ruleName.String
		e.ActionTarget = target.String
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, nil
}
