package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mtech-resorts/cashdesk/models"
)

const orderColumns = `id, resort_id, start_date, order_data_hash, payment_status, order_status, wizard_state,
	legacy, test_order, client_name, client_email, client_phone, sales_channel,
	price_snapshot, myth_order, skidata_order, payment_intent_id, payment_bypassed,
	version, created_at, updated_at`

// CreateOrderIntent writes the order and its device rows in one
// transaction, so a live hash never exists without its selection.
func (m *Manager) CreateOrderIntent(ctx context.Context, order *models.Order) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, resort_id, start_date, order_data_hash, payment_status, order_status, wizard_state,
			client_name, client_email, client_phone, sales_channel)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, order.ID, order.ResortID, order.StartDate, order.OrderDataHash,
		order.PaymentStatus, order.OrderStatus, order.WizardState,
		order.ClientName, order.ClientEmail, order.ClientPhone, order.SalesChannel)
	if err != nil {
		return fmt.Errorf("failed to insert order intent: %w", err)
	}
	for i, d := range order.Devices {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_devices (order_id, idx, product_id, consumer_category_id, insurance, lifepass_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, order.ID, i, d.ProductID, d.ConsumerCategoryID, d.Insurance, d.LifepassID)
		if err != nil {
			return fmt.Errorf("failed to insert order device: %w", err)
		}
	}

	return tx.Commit()
}

func (m *Manager) GetLiveOrderByHash(ctx context.Context, hash string) (*models.Order, error) {
	row := m.DB.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE order_data_hash = $1 AND NOT discarded
	`, hash)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.attachDevices(ctx, order)
}

func (m *Manager) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	row := m.DB.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.attachDevices(ctx, order)
}

func (m *Manager) DiscardOrderIntent(ctx context.Context, id string) error {
	_, err := m.DB.ExecContext(ctx, `
		UPDATE orders SET discarded = TRUE, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to discard order intent: %w", err)
	}
	return nil
}

func (m *Manager) ReplaceOrderDevices(ctx context.Context, orderID string, devices []models.Device) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM order_devices WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to clear order devices: %w", err)
	}
	for i, d := range devices {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_devices (order_id, idx, product_id, consumer_category_id, insurance, lifepass_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, orderID, i, d.ProductID, d.ConsumerCategoryID, d.Insurance, d.LifepassID)
		if err != nil {
			return fmt.Errorf("failed to insert order device: %w", err)
		}
	}

	return tx.Commit()
}

// guardedUpdate runs an UPDATE that must match both id and version, bumping
// the version on success. Zero affected rows means a stale caller.
func (m *Manager) guardedUpdate(ctx context.Context, query string, args ...any) error {
	res, err := m.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (m *Manager) UpdateOrderPricing(ctx context.Context, id string, version int64, snapshot []byte, state models.WizardState) error {
	return m.guardedUpdate(ctx, `
		UPDATE orders
		SET price_snapshot = $3, order_status = $4, wizard_state = $5,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
	`, id, version, snapshot, models.OrderPriced, state)
}

func (m *Manager) UpdateOrderPayment(ctx context.Context, id string, version int64, status models.PaymentStatus, intentID string, bypassed bool, state models.WizardState) error {
	return m.guardedUpdate(ctx, `
		UPDATE orders
		SET payment_status = $3, payment_intent_id = $4, payment_bypassed = $5, wizard_state = $6,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
	`, id, version, status, intentID, bypassed, state)
}

func (m *Manager) UpdateOrderSubmission(ctx context.Context, id string, version int64, myth, skidata []byte, state models.WizardState) error {
	return m.guardedUpdate(ctx, `
		UPDATE orders
		SET myth_order = $3, skidata_order = $4, order_status = $5, wizard_state = $6,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
	`, id, version, myth, skidata, models.OrderSubmitted, state)
}

func (m *Manager) SetWizardState(ctx context.Context, id string, version int64, state models.WizardState) error {
	return m.guardedUpdate(ctx, `
		UPDATE orders
		SET wizard_state = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
	`, id, version, state)
}

func (m *Manager) SetTestOrder(ctx context.Context, id string, version int64, test bool) error {
	return m.guardedUpdate(ctx, `
		UPDATE orders
		SET test_order = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
	`, id, version, test)
}

// SearchOrders filters and pages the order list with a keyset cursor on
// (created_at, id) descending.
func (m *Manager) SearchOrders(ctx context.Context, p SearchOrdersParams) ([]models.Order, error) {
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where, "NOT discarded")
	if !p.IncludeTest {
		where = append(where, "NOT test_order")
	}
	if p.Query != "" {
		ph := arg("%" + p.Query + "%")
		where = append(where, fmt.Sprintf(
			"(client_name ILIKE %s OR client_email ILIKE %s OR client_phone ILIKE %s OR id::text ILIKE %s)",
			ph, ph, ph, ph))
	}
	if p.ResortID != "" {
		where = append(where, "resort_id = "+arg(p.ResortID))
	}
	if len(p.PaymentStatus) > 0 {
		placeholders := make([]string, len(p.PaymentStatus))
		for i, s := range p.PaymentStatus {
			placeholders[i] = arg(string(s))
		}
		where = append(where, "payment_status IN ("+strings.Join(placeholders, ",")+")")
	}
	if len(p.OrderStatus) > 0 {
		placeholders := make([]string, len(p.OrderStatus))
		for i, s := range p.OrderStatus {
			placeholders[i] = arg(string(s))
		}
		where = append(where, "order_status IN ("+strings.Join(placeholders, ",")+")")
	}
	if p.CreatedFrom != nil {
		where = append(where, "created_at >= "+arg(*p.CreatedFrom))
	}
	if p.CreatedTo != nil {
		where = append(where, "created_at <= "+arg(*p.CreatedTo))
	}
	if p.AfterCreatedAt != nil && p.AfterID != "" {
		// The cursor carries the full timestamp; truncating it would skip
		// or repeat rows created within the same second.
		ts := arg(*p.AfterCreatedAt)
		where = append(where, fmt.Sprintf(
			"(created_at < %s OR (created_at = %s AND id < %s))",
			ts, ts, arg(p.AfterID)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC LIMIT ` + arg(p.PageSize)

	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrderRows(rows)
}

// OrdersByLifepass lists orders holding the given device code, used as the
// double-allocation advisory on the swap screen.
func (m *Manager) OrdersByLifepass(ctx context.Context, code string) ([]models.Order, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT `+qualifiedOrderColumns("o")+`
		FROM orders o
		JOIN order_devices d ON d.order_id = o.id
		WHERE d.lifepass_id = $1 AND NOT o.discarded
		ORDER BY o.created_at DESC
	`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrderRows(rows)
}

func (m *Manager) attachDevices(ctx context.Context, order *models.Order) (*models.Order, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT product_id, consumer_category_id, insurance, lifepass_id
		FROM order_devices
		WHERE order_id = $1
		ORDER BY idx
	`, order.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var d models.Device
		if err := rows.Scan(&d.ProductID, &d.ConsumerCategoryID, &d.Insurance, &d.LifepassID); err != nil {
			return nil, err
		}
		order.Devices = append(order.Devices, d)
	}
	return order, rows.Err()
}

func qualifiedOrderColumns(alias string) string {
	cols := strings.Split(orderColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order     models.Order
		startDate time.Time
		snapshot  []byte
		myth      []byte
		skidata   []byte
	)
	err := row.Scan(
		&order.ID,
		&order.ResortID,
		&startDate,
		&order.OrderDataHash,
		&order.PaymentStatus,
		&order.OrderStatus,
		&order.WizardState,
		&order.Legacy,
		&order.TestOrder,
		&order.ClientName,
		&order.ClientEmail,
		&order.ClientPhone,
		&order.SalesChannel,
		&snapshot,
		&myth,
		&skidata,
		&order.PaymentIntent,
		&order.PaymentBypass,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.StartDate = startDate.Format("2006-01-02")
	if len(snapshot) > 0 {
		var price models.CalculatedPrice
		if err := json.Unmarshal(snapshot, &price); err != nil {
			return nil, fmt.Errorf("corrupt price snapshot on order %s: %w", order.ID, err)
		}
		order.Price = &price
	}
	order.MythOrder = myth
	order.SkidataOrder = skidata
	return &order, nil
}

func scanOrderRows(rows *sql.Rows) ([]models.Order, error) {
	var out []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *order)
	}
	return out, rows.Err()
}
