package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/models"
)

type sqliteServiceRepo struct {
	db *sql.DB
}

const serviceColumns = `id, name, url, expected_status, timeout_sec, status,
	last_checked_at, created_at, updated_at`

func (r *sqliteServiceRepo) Create(ctx context.Context, service *models.Service) error {
	query := `
		INSERT INTO services (` + serviceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		service.ID, service.Name, service.URL, service.ExpectedStatus,
		service.TimeoutSec, service.Status, nullTime(service.LastCheckedAt),
		service.CreatedAt, service.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

func (r *sqliteServiceRepo) GetByID(ctx context.Context, id string) (*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = ?`
	return scanService(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteServiceRepo) Update(ctx context.Context, service *models.Service) error {
	query := `
		UPDATE services SET name = ?, url = ?, expected_status = ?, timeout_sec = ?,
			status = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		service.Name, service.URL, service.ExpectedStatus, service.TimeoutSec,
		service.Status, service.UpdatedAt, service.ID,
	)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("service not found: %s", service.ID)
	}
	return nil
}

func (r *sqliteServiceRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM services WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("service not found: %s", id)
	}
	return nil
}

func (r *sqliteServiceRepo) List(ctx context.Context) ([]*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	return services, rows.Err()
}

func (r *sqliteServiceRepo) UpdateStatus(ctx context.Context, id string, status models.ServiceStatus, checkedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE services SET status = ?, last_checked_at = ?, updated_at = ? WHERE id = ?",
		status, checkedAt, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update service status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("service not found: %s", id)
	}
	return nil
}

func scanService(row scanner) (*models.Service, error) {
	service := &models.Service{}
	var lastChecked sql.NullTime

	err := row.Scan(
		&service.ID, &service.Name, &service.URL, &service.ExpectedStatus,
		&service.TimeoutSec, &service.Status, &lastChecked,
		&service.CreatedAt, &service.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan service: %w", err)
	}

	if lastChecked.Valid {
		t := lastChecked.Time
		service.LastCheckedAt = &t
	}
	return service, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
