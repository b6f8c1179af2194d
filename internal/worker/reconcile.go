// Package worker settles payments abandoned mid-poll: a desk process that
// dies between creating a terminal payment and seeing its final status
// leaves a row stuck in CREATED/PROCESSING while the provider may already
// have charged the card. The reconciler asks the provider for the truth
// and repairs the payment and order rows.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mtech-resorts/cashdesk/internal/orders"
	"github.com/mtech-resorts/cashdesk/models"
)

const batchSize = 50

type Store interface {
	FindStuckPayments(ctx context.Context, olderThan time.Duration, limit int) ([]models.TerminalPayment, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.TerminalPaymentStatus) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderPayment(ctx context.Context, id string, version int64, status models.PaymentStatus, intentID string, bypassed bool, state models.WizardState) error
}

type StatusSource interface {
	GetStatus(ctx context.Context, intentID string) (models.TerminalPaymentStatus, error)
}

type Reconciler struct {
	Store      Store
	Terminal   StatusSource
	Logger     *zap.SugaredLogger
	Interval   time.Duration
	StuckAfter time.Duration
}

func NewReconciler(store Store, terminal StatusSource, logger *zap.SugaredLogger, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{
		Store:      store,
		Terminal:   terminal,
		Logger:     logger,
		Interval:   interval,
		StuckAfter: 5 * time.Minute,
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	r.Logger.Info("payment reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("payment reconciler stopped")
			return
		case <-ticker.C:
			if err := r.process(ctx); err != nil {
				r.Logger.Errorw("reconciliation pass failed", "error", err)
			}
		}
	}
}

func (r *Reconciler) process(ctx context.Context) error {
	stuck, err := r.Store.FindStuckPayments(ctx, r.StuckAfter, batchSize)
	if err != nil {
		return err
	}
	for _, payment := range stuck {
		r.settle(ctx, payment)
	}
	return nil
}

func (r *Reconciler) settle(ctx context.Context, payment models.TerminalPayment) {
	status, err := r.Terminal.GetStatus(ctx, payment.IntentID)
	if err != nil {
		r.Logger.Warnw("could not fetch provider status for stuck payment",
			"payment", payment.ID, "error", err)
		return
	}
	if !status.Terminal() {
		// Still in flight at the provider; the next pass will catch it.
		return
	}

	if err := r.Store.UpdatePaymentStatus(ctx, payment.ID, status); err != nil {
		r.Logger.Errorw("failed to settle stuck payment", "payment", payment.ID, "error", err)
		return
	}
	r.Logger.Infow("settled stuck payment",
		"payment", payment.ID, "order", payment.OrderID, "status", status)

	if status != models.TerminalSucceeded {
		return
	}

	// Ghost charge: the provider collected the money but the order never
	// heard about it.
	order, err := r.Store.GetOrderByID(ctx, payment.OrderID)
	if err != nil || order == nil {
		r.Logger.Errorw("failed to load order for settled payment",
			"order", payment.OrderID, "error", err)
		return
	}
	if order.PaymentStatus == models.PaymentPaid || order.PaymentStatus == models.PaymentBypassed {
		return
	}
	next, err := orders.Next(order.WizardState, orders.EventPaymentSucceeded)
	if err != nil {
		// The wizard is somewhere a paid event cannot apply; leave it to
		// an operator rather than forcing the state.
		r.Logger.Warnw("settled payment does not fit order state",
			"order", order.ID, "state", order.WizardState)
		return
	}
	err = r.Store.UpdateOrderPayment(ctx, order.ID, order.Version,
		models.PaymentPaid, payment.IntentID, false, next)
	if err != nil {
		r.Logger.Errorw("failed to repair ghost-charged order",
			"order", order.ID, "error", err)
		return
	}
	r.Logger.Infow("repaired ghost-charged order", "order", order.ID)
}
