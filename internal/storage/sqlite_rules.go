package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/models"
)

type sqliteRuleRepo struct {
	db *sql.DB
}

const ruleColumns = `id, name, category, metric, service_id, operator, threshold,
	duration, severity, cooldown_sec, channel_ids_json, schedule, enabled,
	created_at, updated_at`

func (r *sqliteRuleRepo) Create(ctx context.Context, rule *models.AlertRule) error {
	channelsJSON, err := json.Marshal(rule.ChannelIDs)
	if err != nil {
		return fmt.Errorf("marshal channel ids: %w", err)
	}

	query := `
		INSERT INTO rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Category, rule.Metric, nullString(rule.ServiceID),
		rule.Operator, rule.Threshold, rule.Duration, rule.Severity, rule.Cooldown,
		string(channelsJSON), nullString(rule.Schedule), boolToInt(rule.Enabled),
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (r *sqliteRuleRepo) GetByID(ctx context.Context, id string) (*models.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = ?`
	return scanRule(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteRuleRepo) Update(ctx context.Context, rule *models.AlertRule) error {
	channelsJSON, err := json.Marshal(rule.ChannelIDs)
	if err != nil {
		return fmt.Errorf("marshal channel ids: %w", err)
	}

	query := `
		UPDATE rules SET name = ?, category = ?, metric = ?, service_id = ?,
			operator = ?, threshold = ?, duration = ?, severity = ?, cooldown_sec = ?,
			channel_ids_json = ?, schedule = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Category, rule.Metric, nullString(rule.ServiceID),
		rule.Operator, rule.Threshold, rule.Duration, rule.Severity, rule.Cooldown,
		string(channelsJSON), nullString(rule.Schedule), boolToInt(rule.Enabled),
		rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("rule not found: %s", rule.ID)
	}
	return nil
}

func (r *sqliteRuleRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("rule not found: %s", id)
	}
	return nil
}

func (r *sqliteRuleRepo) List(ctx context.Context) ([]*models.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules ORDER BY name`
	return r.queryRules(ctx, query)
}

func (r *sqliteRuleRepo) ListEnabled(ctx context.Context) ([]*models.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE enabled = 1 ORDER BY name`
	return r.queryRules(ctx, query)
}

func (r *sqliteRuleRepo) SetEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE rules SET enabled = ?, updated_at = ? WHERE id = ?",
		boolToInt(enabled), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set rule enabled: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("rule not found: %s", id)
	}
	return nil
}

func (r *sqliteRuleRepo) queryRules(ctx context.Context, query string, args ...interface{}) ([]*models.AlertRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.AlertRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row scanner) (*models.AlertRule, error) {
	rule := &models.AlertRule{}
	var serviceID, schedule sql.NullString
	var channelsJSON string
	var enabled int

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Category, &rule.Metric, &serviceID,
		&rule.Operator, &rule.Threshold, &rule.Duration, &rule.Severity,
		&rule.Cooldown, &channelsJSON, &schedule, &enabled,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan rule: %w", err)
	}

	rule.ServiceID = serviceID.String
	rule.Schedule = schedule.String
	rule.Enabled = enabled != 0

	if err := json.Unmarshal([]byte(channelsJSON), &rule.ChannelIDs); err != nil {
		return nil, fmt.Errorf("unmarshal channel ids: %w", err)
	}

	return rule, nil
}

// Helper functions

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
