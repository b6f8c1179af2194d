package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mtech-resorts/cashdesk/models"
)

func (m *Manager) CreateSessionLog(ctx context.Context, log *models.SessionLog) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO session_logs (id, created_at) VALUES ($1, $2)
	`, log.ID, log.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert session log: %w", err)
	}

	for _, task := range log.Tasks {
		var parent any
		if task.ParentID != "" {
			parent = task.ParentID
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_tasks (id, session_id, parent_id, name, status, started_at, duration_ms, error_detail)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, task.ID, log.ID, parent, task.Name, task.Status,
			task.StartedAt, task.Duration.Milliseconds(), task.ErrorDetail)
		if err != nil {
			return fmt.Errorf("failed to insert session task: %w", err)
		}
	}

	return tx.Commit()
}

func (m *Manager) GetSessionLog(ctx context.Context, id string) (*models.SessionLog, error) {
	var log models.SessionLog
	err := m.DB.QueryRowContext(ctx, `
		SELECT id, created_at FROM session_logs WHERE id = $1
	`, id).Scan(&log.ID, &log.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := m.DB.QueryContext(ctx, `
		SELECT id, parent_id, name, status, started_at, duration_ms, error_detail
		FROM session_tasks
		WHERE session_id = $1
		ORDER BY started_at
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			task       models.SessionTask
			parent     sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&task.ID, &parent, &task.Name, &task.Status,
			&task.StartedAt, &durationMS, &task.ErrorDetail); err != nil {
			return nil, err
		}
		task.SessionID = id
		task.ParentID = parent.String
		task.Duration = time.Duration(durationMS) * time.Millisecond
		log.Tasks = append(log.Tasks, task)
	}
	return &log, rows.Err()
}
