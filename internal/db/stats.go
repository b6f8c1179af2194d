package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mtech-resorts/cashdesk/models"
)

// OrdersForStatistics loads paid or bypassed, submitted-or-better orders in
// the closed date range, devices included, one joined query.
func (m *Manager) OrdersForStatistics(ctx context.Context, from, to string, includeTest bool) ([]models.Order, error) {
	query := `
		SELECT ` + qualifiedOrderColumns("o") + `,
			d.product_id, d.consumer_category_id, d.insurance, d.lifepass_id
		FROM orders o
		LEFT JOIN order_devices d ON d.order_id = o.id
		WHERE NOT o.discarded
		  AND o.payment_status IN ($1, $2)
		  AND o.order_status IN ($3, $4)
		  AND o.start_date >= $5 AND o.start_date <= $6`
	args := []any{
		models.PaymentPaid, models.PaymentBypassed,
		models.OrderSubmitted, models.OrderComplete,
		from, to,
	}
	if !includeTest {
		query += ` AND NOT o.test_order`
	}
	query += ` ORDER BY o.created_at, o.id, d.idx`

	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		orders []models.Order
		last   *models.Order
	)
	for rows.Next() {
		order, device, err := scanOrderWithDevice(rows)
		if err != nil {
			return nil, err
		}
		if last == nil || last.ID != order.ID {
			orders = append(orders, *order)
			last = &orders[len(orders)-1]
		}
		if device != nil {
			last.Devices = append(last.Devices, *device)
		}
	}
	return orders, rows.Err()
}

func scanOrderWithDevice(row rowScanner) (*models.Order, *models.Device, error) {
	var (
		order      models.Order
		startDate  time.Time
		snapshot   []byte
		myth       []byte
		skidata    []byte
		productID  sql.NullString
		categoryID sql.NullString
		insurance  sql.NullBool
		lifepassID sql.NullString
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
		&productID,
		&categoryID,
		&insurance,
		&lifepassID,
	)
	if err != nil {
		return nil, nil, err
	}
	order.StartDate = startDate.Format("2006-01-02")
	if len(snapshot) > 0 {
		var price models.CalculatedPrice
		if err := json.Unmarshal(snapshot, &price); err != nil {
			return nil, nil, fmt.Errorf("corrupt price snapshot on order %s: %w", order.ID, err)
		}
		order.Price = &price
	}
	order.MythOrder = myth
	order.SkidataOrder = skidata

	if !productID.Valid {
		return &order, nil, nil
	}
	return &order, &models.Device{
		ProductID:          productID.String,
		ConsumerCategoryID: categoryID.String,
		Insurance:          insurance.Bool,
		LifepassID:         lifepassID.String,
	}, nil
}
