package db

import (
	"context"
	"fmt"
	"time"

	"github.com/mtech-resorts/cashdesk/models"
)

func (m *Manager) CreatePayment(ctx context.Context, payment *models.TerminalPayment) error {
	_, err := m.DB.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, amount, currency, invoice_id, intent_id, status, attempt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, payment.ID, payment.OrderID, payment.Amount, payment.Currency,
		payment.InvoiceID, payment.IntentID, payment.Status, payment.Attempt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (m *Manager) UpdatePaymentStatus(ctx context.Context, id string, status models.TerminalPaymentStatus) error {
	_, err := m.DB.ExecContext(ctx, `
		UPDATE payments SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

func (m *Manager) CountPaymentAttempts(ctx context.Context, orderID string) (int, error) {
	var count int
	err := m.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM payments WHERE order_id = $1
	`, orderID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count payment attempts: %w", err)
	}
	return count, nil
}

// FindStuckPayments returns payments still in a non-final state older than
// the threshold, for the reconciliation worker to repair.
func (m *Manager) FindStuckPayments(ctx context.Context, olderThan time.Duration, limit int) ([]models.TerminalPayment, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT id, order_id, amount, currency, invoice_id, intent_id, status, attempt, created_at, updated_at
		FROM payments
		WHERE status IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at
		LIMIT $4
	`, models.TerminalCreated, models.TerminalProcessing, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.TerminalPayment
	for rows.Next() {
		var p models.TerminalPayment
		if err := rows.Scan(
			&p.ID, &p.OrderID, &p.Amount, &p.Currency,
			&p.InvoiceID, &p.IntentID, &p.Status, &p.Attempt,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
