package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/models"
)

type sqliteNotificationRepo struct {
	db *sql.DB
}

const notificationColumns = `id, rule_id, rule_name, severity, message, value,
	notified_at, created_at`

func (r *sqliteNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		notification.ID, notification.RuleID, notification.RuleName,
		notification.Severity, notification.Message, notification.Value,
		notification.NotifiedAt, notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *sqliteNotificationRepo) List(ctx context.Context, limit, offset int) ([]*models.Notification, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := `
		SELECT ` + notificationColumns + ` FROM notifications
		ORDER BY notified_at DESC LIMIT ? OFFSET ?
	`
	items, err := r.queryNotifications(ctx, query, limit, offset)
	return items, total, err
}

func (r *sqliteNotificationRepo) ListByRule(ctx context.Context, ruleID string, limit, offset int) ([]*models.Notification, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE rule_id = ?", ruleID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := `
		SELECT ` + notificationColumns + ` FROM notifications
		WHERE rule_id = ? ORDER BY notified_at DESC LIMIT ? OFFSET ?
	`
	items, err := r.queryNotifications(ctx, query, ruleID, limit, offset)
	return items, total, err
}

func (r *sqliteNotificationRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE notified_at < ?", before,
	)
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return result.RowsAffected()
}

func (r *sqliteNotificationRepo) queryNotifications(ctx context.Context, query string, args ...interface{}) ([]*models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var items []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		err := rows.Scan(
			&n.ID, &n.RuleID, &n.RuleName, &n.Severity, &n.Message,
			&n.Value, &n.NotifiedAt, &n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
