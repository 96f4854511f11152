package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/pulseboard/internal/models"
)

type sqliteChannelRepo struct {
	db *sql.DB
}

func (r *sqliteChannelRepo) Create(ctx context.Context, channel *models.Channel) error {
	query := `
		INSERT INTO channels (id, name, type, settings_json, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		channel.ID, channel.Name, channel.Type, channel.Settings,
		boolToInt(channel.Enabled), channel.CreatedAt, channel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

func (r *sqliteChannelRepo) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	query := `
		SELECT id, name, type, settings_json, enabled, created_at, updated_at
		FROM channels WHERE id = ?
	`
	channel := &models.Channel{}
	var enabled int
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&channel.ID, &channel.Name, &channel.Type, &channel.Settings,
		&enabled, &channel.CreatedAt, &channel.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan channel: %w", err)
	}
	channel.Enabled = enabled != 0
	return channel, nil
}

func (r *sqliteChannelRepo) Update(ctx context.Context, channel *models.Channel) error {
	query := `
		UPDATE channels SET name = ?, type = ?, settings_json = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		channel.Name, channel.Type, channel.Settings,
		boolToInt(channel.Enabled), channel.UpdatedAt, channel.ID,
	)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("channel not found: %s", channel.ID)
	}
	return nil
}

func (r *sqliteChannelRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM channels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("channel not found: %s", id)
	}
	return nil
}

func (r *sqliteChannelRepo) List(ctx context.Context) ([]*models.Channel, error) {
	query := `
		SELECT id, name, type, settings_json, enabled, created_at, updated_at
		FROM channels ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		channel := &models.Channel{}
		var enabled int
		err := rows.Scan(
			&channel.ID, &channel.Name, &channel.Type, &channel.Settings,
			&enabled, &channel.CreatedAt, &channel.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channel.Enabled = enabled != 0
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}
