package terminal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mtech-resorts/cashdesk/internal/apierr"
	"github.com/mtech-resorts/cashdesk/models"
)

const (
	// DefaultMaxPolls caps the poll loop at a two minute ceiling with the
	// default two second interval.
	DefaultMaxPolls = 60
	// MaxManualRetries caps how many payments may be started for one order
	// before the operator has to bypass.
	MaxManualRetries = 3
)

type Provider interface {
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResponse, error)
	GetStatus(ctx context.Context, intentID string) (models.TerminalPaymentStatus, error)
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *models.TerminalPayment) error
	UpdatePaymentStatus(ctx context.Context, id string, status models.TerminalPaymentStatus) error
	CountPaymentAttempts(ctx context.Context, orderID string) (int, error)
}

type Driver struct {
	Provider Provider
	Store    PaymentStore
	Logger   *zap.SugaredLogger
	Interval time.Duration
	MaxPolls int
}

func NewDriver(provider Provider, store PaymentStore, logger *zap.SugaredLogger, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Driver{
		Provider: provider,
		Store:    store,
		Logger:   logger,
		Interval: interval,
		MaxPolls: DefaultMaxPolls,
	}
}

// Collect creates a payment for the order total on the terminal and polls
// it to a final status. The loop stops on a final status, on poll
// exhaustion (recorded as TIMEOUT), or when the caller's context fires.
func (d *Driver) Collect(ctx context.Context, order *models.Order) (*models.TerminalPayment, error) {
	if order.Price == nil {
		return nil, apierr.Conflict("order has no calculated price")
	}

	attempts, err := d.Store.CountPaymentAttempts(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if attempts >= MaxManualRetries {
		return nil, apierr.Conflict("payment retry limit reached, bypass required")
	}

	created, err := d.Provider.CreatePayment(ctx, CreateRequest{
		OrderID:  order.ID,
		Amount:   order.Price.CumulativeGross,
		Currency: "EUR",
	})
	if err != nil {
		return nil, err
	}

	status, err := ParseStatus(created.Status)
	if err != nil {
		return nil, err
	}
	payment := &models.TerminalPayment{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		Amount:    order.Price.CumulativeGross,
		Currency:  "EUR",
		InvoiceID: created.InvoiceID,
		IntentID:  created.IntentID,
		Status:    status,
		Attempt:   attempts + 1,
	}
	if err := d.Store.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	d.Logger.Infow("terminal payment created",
		"order", order.ID, "intent", payment.IntentID, "attempt", payment.Attempt)

	return d.poll(ctx, payment)
}

func (d *Driver) poll(ctx context.Context, payment *models.TerminalPayment) (*models.TerminalPayment, error) {
	if payment.Status.Terminal() {
		return payment, nil
	}

	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for polls := 0; polls < d.MaxPolls; {
		select {
		case <-ctx.Done():
			// Leave the row in its current state; the reconciliation
			// worker settles abandoned payments.
			return payment, ctx.Err()
		case <-ticker.C:
			polls++
			status, err := d.Provider.GetStatus(ctx, payment.IntentID)
			if err != nil {
				d.Logger.Warnw("payment status poll failed",
					"intent", payment.IntentID, "poll", polls, "error", err)
				continue
			}
			if status == payment.Status {
				continue
			}
			payment.Status = status
			if err := d.Store.UpdatePaymentStatus(ctx, payment.ID, status); err != nil {
				return payment, err
			}
			if status.Terminal() {
				return payment, nil
			}
		}
	}

	payment.Status = models.TerminalTimeout
	if err := d.Store.UpdatePaymentStatus(ctx, payment.ID, models.TerminalTimeout); err != nil {
		return payment, err
	}
	return payment, nil
}
