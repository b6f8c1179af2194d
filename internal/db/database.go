package db

import (
	"context"
	"errors"
	"time"

	"github.com/mtech-resorts/cashdesk/models"
)

// ErrVersionConflict is returned by guarded writes when the caller's
// last-seen order version is stale.
var ErrVersionConflict = errors.New("order version conflict")

// SearchOrdersParams are the filters and keyset cursor for the order list.
type SearchOrdersParams struct {
	Query          string
	ResortID       string
	PaymentStatus  []models.PaymentStatus
	OrderStatus    []models.OrderStatus
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	IncludeTest    bool
	PageSize       int
	AfterCreatedAt *time.Time
	AfterID        string
}

type Database interface {
	PutOperator(ctx context.Context, operator models.Operator) error
	GetOperator(ctx context.Context, login string) (models.Operator, error)

	CreateOrderIntent(ctx context.Context, order *models.Order) error
	GetLiveOrderByHash(ctx context.Context, hash string) (*models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	DiscardOrderIntent(ctx context.Context, id string) error
	ReplaceOrderDevices(ctx context.Context, orderID string, devices []models.Device) error
	UpdateOrderPricing(ctx context.Context, id string, version int64, snapshot []byte, state models.WizardState) error
	UpdateOrderPayment(ctx context.Context, id string, version int64, status models.PaymentStatus, intentID string, bypassed bool, state models.WizardState) error
	UpdateOrderSubmission(ctx context.Context, id string, version int64, myth, skidata []byte, state models.WizardState) error
	SetWizardState(ctx context.Context, id string, version int64, state models.WizardState) error
	SetTestOrder(ctx context.Context, id string, version int64, test bool) error
	SearchOrders(ctx context.Context, p SearchOrdersParams) ([]models.Order, error)
	OrdersByLifepass(ctx context.Context, code string) ([]models.Order, error)

	CreatePayment(ctx context.Context, payment *models.TerminalPayment) error
	UpdatePaymentStatus(ctx context.Context, id string, status models.TerminalPaymentStatus) error
	CountPaymentAttempts(ctx context.Context, orderID string) (int, error)
	FindStuckPayments(ctx context.Context, olderThan time.Duration, limit int) ([]models.TerminalPayment, error)

	GetOrCreateSwapSaga(ctx context.Context, saga *models.SwapSaga) (*models.SwapSaga, error)
	GetSwapSaga(ctx context.Context, id string) (*models.SwapSaga, error)
	UpdateSwapStep(ctx context.Context, id string, step int, status models.SwapStepStatus, detail string) error

	CreateSessionLog(ctx context.Context, log *models.SessionLog) error
	GetSessionLog(ctx context.Context, id string) (*models.SessionLog, error)

	GetProducts(ctx context.Context, resortID string) (map[string]models.Product, error)
	GetConsumerCategories(ctx context.Context, resortID string) (map[string]models.ConsumerCategory, error)

	OrdersForStatistics(ctx context.Context, from, to string, includeTest bool) ([]models.Order, error)

	Close() error
}
