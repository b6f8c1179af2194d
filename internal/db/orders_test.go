package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtech-resorts/cashdesk/models"
)

var orderRowColumns = []string{
	"id", "resort_id", "start_date", "order_data_hash", "payment_status", "order_status", "wizard_state",
	"legacy", "test_order", "client_name", "client_email", "client_phone", "sales_channel",
	"price_snapshot", "myth_order", "skidata_order", "payment_intent_id", "payment_bypassed",
	"version", "created_at", "updated_at",
}

func orderRow(id string) []driver.Value {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return []driver.Value{
		id, "resort-1", now, "hash-1", "PENDING", "DRAFT", "FORM_ENTRY",
		false, false, "Jordan", "jordan@example.com", "+41791234567", "cash desk",
		[]byte(nil), []byte(nil), []byte(nil), "", false,
		int64(1), now, now,
	}
}

func TestCreateOrderIntent(t *testing.T) {
	mockdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockdb.Close()

	manager := Manager{DB: mockdb}

	order := &models.Order{
		ID:            "order-1",
		ResortID:      "resort-1",
		StartDate:     "2026-01-10",
		OrderDataHash: "hash-1",
		PaymentStatus: models.PaymentPending,
		OrderStatus:   models.OrderDraft,
		WizardState:   models.WizardFormEntry,
		ClientName:    "Jordan",
		SalesChannel:  "cash desk",
		Devices: []models.Device{
			{ProductID: "rental-3d", ConsumerCategoryID: "adult", Insurance: true, LifepassID: "LP-1"},
			{ProductID: "rental-3d", ConsumerCategoryID: "child"},
		},
	}

	t.Run("InsertsOrderAndDevicesInOneTransaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).
			WithArgs("order-1", "resort-1", "2026-01-10", "hash-1", "PENDING", "DRAFT", "FORM_ENTRY",
				"Jordan", "", "", "cash desk").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_devices`).
			WithArgs("order-1", 0, "rental-3d", "adult", true, "LP-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_devices`).
			WithArgs("order-1", 1, "rental-3d", "child", false, "").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, manager.CreateOrderIntent(context.Background(), order))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DeviceInsertFailureRollsBackTheOrder", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_devices`).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := manager.CreateOrderIntent(context.Background(), order)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetOrderByID(t *testing.T) {
	mockdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockdb.Close()

	manager := Manager{DB: mockdb}

	t.Run("FoundWithDevices", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM orders\s+WHERE id = \$1`).
			WithArgs("order-1").
			WillReturnRows(sqlmock.NewRows(orderRowColumns).AddRow(orderRow("order-1")...))
		mock.ExpectQuery(`SELECT product_id, consumer_category_id, insurance, lifepass_id\s+FROM order_devices`).
			WithArgs("order-1").
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "consumer_category_id", "insurance", "lifepass_id"}).
				AddRow("rental-3d", "adult", true, "LP-1").
				AddRow("rental-3d", "child", false, ""))

		order, err := manager.GetOrderByID(context.Background(), "order-1")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, "2026-01-10", order.StartDate)
		assert.Equal(t, models.PaymentPending, order.PaymentStatus)
		require.Len(t, order.Devices, 2)
		assert.Equal(t, "LP-1", order.Devices[0].LifepassID)
		assert.Nil(t, order.Price)
	})

	t.Run("NotFoundIsNilNil", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM orders\s+WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		order, err := manager.GetOrderByID(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, order)
	})
}

func TestGuardedUpdates(t *testing.T) {
	mockdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockdb.Close()

	manager := Manager{DB: mockdb}

	t.Run("MatchBumpsVersion", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders\s+SET wizard_state = \$3, version = version \+ 1`).
			WithArgs("order-1", int64(1), "PAYMENT").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := manager.SetWizardState(context.Background(), "order-1", 1, models.WizardPayment)
		assert.NoError(t, err)
	})

	t.Run("StaleVersionIsConflict", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders\s+SET wizard_state = \$3, version = version \+ 1`).
			WithArgs("order-1", int64(1), "PAYMENT").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := manager.SetWizardState(context.Background(), "order-1", 1, models.WizardPayment)
		assert.ErrorIs(t, err, ErrVersionConflict)
	})

	t.Run("PaymentUpdateCarriesIntent", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders\s+SET payment_status = \$3, payment_intent_id = \$4, payment_bypassed = \$5, wizard_state = \$6`).
			WithArgs("order-1", int64(2), "PAID", "pi_123", false, "SUBMISSION").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := manager.UpdateOrderPayment(context.Background(), "order-1", 2,
			models.PaymentPaid, "pi_123", false, models.WizardSubmission)
		assert.NoError(t, err)
	})
}

func TestReplaceOrderDevices(t *testing.T) {
	mockdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockdb.Close()

	manager := Manager{DB: mockdb}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM order_devices WHERE order_id = \$1`).
		WithArgs("order-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO order_devices`).
		WithArgs("order-1", 0, "rental-3d", "adult", true, "LP-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_devices`).
		WithArgs("order-1", 1, "rental-3d", "child", false, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = manager.ReplaceOrderDevices(context.Background(), "order-1", []models.Device{
		{ProductID: "rental-3d", ConsumerCategoryID: "adult", Insurance: true, LifepassID: "LP-1"},
		{ProductID: "rental-3d", ConsumerCategoryID: "child"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchOrders(t *testing.T) {
	mockdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockdb.Close()

	manager := Manager{DB: mockdb}

	t.Run("DefaultsExcludeTestAndDiscarded", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM orders WHERE NOT discarded AND NOT test_order ORDER BY created_at DESC, id DESC LIMIT \$1`).
			WithArgs(20).
			WillReturnRows(sqlmock.NewRows(orderRowColumns).AddRow(orderRow("order-1")...))

		found, err := manager.SearchOrders(context.Background(), SearchOrdersParams{})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "order-1", found[0].ID)
	})

	t.Run("KeysetCursorCarriesFullTimestamp", func(t *testing.T) {
		// Sub-second precision matters: rows created within the same second
		// as the cursor would otherwise be skipped or repeated.
		cursor := time.Date(2026, 1, 9, 16, 0, 0, 123456000, time.UTC)
		mock.ExpectQuery(`\(created_at < \$1 OR \(created_at = \$1 AND id < \$2\)\)`).
			WithArgs(cursor, "order-5", 20).
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		found, err := manager.SearchOrders(context.Background(), SearchOrdersParams{
			IncludeTest:    true,
			AfterCreatedAt: &cursor,
			AfterID:        "order-5",
		})
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("FreeTextFilter", func(t *testing.T) {
		mock.ExpectQuery(`client_name ILIKE \$1 OR client_email ILIKE \$1`).
			WithArgs("%jordan%", 20).
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		_, err := manager.SearchOrders(context.Background(), SearchOrdersParams{
			Query:       "jordan",
			IncludeTest: true,
		})
		require.NoError(t, err)
	})
}
