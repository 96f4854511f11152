package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type sqliteReadMarkRepo struct {
	db *sql.DB
}

// Load returns the stored read-mark IDs oldest-first.
func (r *sqliteReadMarkRepo) Load(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT notification_id FROM read_marks ORDER BY position",
	)
	if err != nil {
		return nil, fmt.Errorf("query read marks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan read mark: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Save replaces the stored list with the given IDs, preserving order.
func (r *sqliteReadMarkRepo) Save(ctx context.Context, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read marks transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM read_marks"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear read marks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO read_marks (position, notification_id) VALUES (?, ?)",
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare read mark insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert read mark: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit read marks: %w", err)
	}
	return nil
}
