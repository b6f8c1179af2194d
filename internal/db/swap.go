package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mtech-resorts/cashdesk/models"
)

const swapColumns = `id, order_id, resort_id, old_pass_id, new_pass_id, return_only,
	step, step_status, error_detail, created_at, updated_at`

// GetOrCreateSwapSaga returns the existing saga for the (order, old pass,
// new pass) triple or creates a fresh one at step 1. Re-posting the same
// swap therefore resumes instead of restarting.
func (m *Manager) GetOrCreateSwapSaga(ctx context.Context, saga *models.SwapSaga) (*models.SwapSaga, error) {
	existing, err := m.findSwapSaga(ctx, saga.OrderID, saga.OldPassID, saga.NewPassID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	_, err = m.DB.ExecContext(ctx, `
		INSERT INTO swap_sagas (id, order_id, resort_id, old_pass_id, new_pass_id, return_only, step, step_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, saga.ID, saga.OrderID, saga.ResortID, saga.OldPassID, saga.NewPassID,
		saga.ReturnOnly, saga.Step, saga.StepStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to insert swap saga: %w", err)
	}
	return saga, nil
}

func (m *Manager) GetSwapSaga(ctx context.Context, id string) (*models.SwapSaga, error) {
	row := m.DB.QueryRowContext(ctx, `
		SELECT `+swapColumns+` FROM swap_sagas WHERE id = $1
	`, id)
	saga, err := scanSwapSaga(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return saga, err
}

func (m *Manager) UpdateSwapStep(ctx context.Context, id string, step int, status models.SwapStepStatus, detail string) error {
	_, err := m.DB.ExecContext(ctx, `
		UPDATE swap_sagas
		SET step = $2, step_status = $3, error_detail = $4, updated_at = now()
		WHERE id = $1
	`, id, step, status, detail)
	if err != nil {
		return fmt.Errorf("failed to update swap saga: %w", err)
	}
	return nil
}

func (m *Manager) findSwapSaga(ctx context.Context, orderID, oldPass, newPass string) (*models.SwapSaga, error) {
	row := m.DB.QueryRowContext(ctx, `
		SELECT `+swapColumns+`
		FROM swap_sagas
		WHERE order_id = $1 AND old_pass_id = $2 AND new_pass_id = $3
	`, orderID, oldPass, newPass)
	saga, err := scanSwapSaga(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return saga, err
}

func scanSwapSaga(row rowScanner) (*models.SwapSaga, error) {
	var s models.SwapSaga
	err := row.Scan(
		&s.ID, &s.OrderID, &s.ResortID, &s.OldPassID, &s.NewPassID, &s.ReturnOnly,
		&s.Step, &s.StepStatus, &s.ErrorDetail, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
