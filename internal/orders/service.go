// Package orders owns the order-creation flow: intent creation, price
// review, terminal payment, and submission to the ticketing providers. The
// wizard position is persisted per order, so every desk and tab sees the
// same state.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mtech-resorts/cashdesk/internal/apierr"
	"github.com/mtech-resorts/cashdesk/internal/db"
	"github.com/mtech-resorts/cashdesk/internal/pricing"
	"github.com/mtech-resorts/cashdesk/internal/sessionlog"
	"github.com/mtech-resorts/cashdesk/internal/ticketing"
	"github.com/mtech-resorts/cashdesk/models"
)

type Store interface {
	CreateOrderIntent(ctx context.Context, order *models.Order) error
	GetLiveOrderByHash(ctx context.Context, hash string) (*models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	DiscardOrderIntent(ctx context.Context, id string) error
	ReplaceOrderDevices(ctx context.Context, orderID string, devices []models.Device) error
	UpdateOrderPricing(ctx context.Context, id string, version int64, snapshot []byte, state models.WizardState) error
	UpdateOrderPayment(ctx context.Context, id string, version int64, status models.PaymentStatus, intentID string, bypassed bool, state models.WizardState) error
	UpdateOrderSubmission(ctx context.Context, id string, version int64, myth, skidata []byte, state models.WizardState) error
	SetWizardState(ctx context.Context, id string, version int64, state models.WizardState) error
	CreateSessionLog(ctx context.Context, log *models.SessionLog) error
}

type Calculator interface {
	Calculate(ctx context.Context, req pricing.Request) (*models.CalculatedPrice, error)
}

type PaymentCollector interface {
	Collect(ctx context.Context, order *models.Order) (*models.TerminalPayment, error)
}

type MythAPI interface {
	CreateOrder(ctx context.Context, req ticketing.MythOrderRequest) (json.RawMessage, error)
}

type SkidataAPI interface {
	CreateOrder(ctx context.Context, req ticketing.SkidataOrderRequest) (json.RawMessage, error)
}

type Service struct {
	Store      Store
	Calculator Calculator
	Terminal   PaymentCollector
	Myth       MythAPI
	Skidata    SkidataAPI
	Logger     *zap.SugaredLogger
}

type IntentRequest struct {
	ResortID     string          `json:"resortId"`
	StartDate    string          `json:"startDate"`
	Devices      []models.Device `json:"devices"`
	ClientName   string          `json:"clientName"`
	ClientEmail  string          `json:"clientEmail"`
	ClientPhone  string          `json:"clientPhone"`
	SalesChannel string          `json:"salesChannel"`
}

// CreateIntent reserves an order for the given selection, at most once per
// order-data hash. Repeats and concurrent callers get the already-live
// intent back.
func (s *Service) CreateIntent(ctx context.Context, req IntentRequest) (*models.Order, error) {
	if len(req.Devices) == 0 {
		return nil, apierr.Validation([]apierr.Issue{{Path: []any{"devices"}, Message: "Required"}})
	}

	hash := OrderDataHash(req.ResortID, req.StartDate, req.Devices)
	existing, err := s.Store.GetLiveOrderByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	order := &models.Order{
		ID:            uuid.New().String(),
		ResortID:      req.ResortID,
		StartDate:     req.StartDate,
		OrderDataHash: hash,
		PaymentStatus: models.PaymentPending,
		OrderStatus:   models.OrderDraft,
		WizardState:   models.WizardFormEntry,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientPhone:   req.ClientPhone,
		SalesChannel:  req.SalesChannel,
		Devices:       req.Devices,
		Version:       1,
	}
	if err := s.Store.CreateOrderIntent(ctx, order); err != nil {
		// Lost the race to a concurrent desk: the partial unique index on
		// the hash rejects the second insert, so hand back the winner.
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return s.Store.GetLiveOrderByHash(ctx, hash)
		}
		return nil, err
	}
	return order, nil
}

// CalculatePrice prices the order's current selection and stores the
// snapshot, moving the wizard to price review.
func (s *Service) CalculatePrice(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, err := Next(order.WizardState, EventPriceCalculated)
	if err != nil {
		return nil, err
	}

	price, err := s.Calculator.Calculate(ctx, pricing.Request{
		ResortID:  order.ResortID,
		StartDate: order.StartDate,
		Products:  order.Devices,
	})
	if err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(price)
	if err != nil {
		return nil, err
	}
	if err := s.Store.UpdateOrderPricing(ctx, order.ID, order.Version, snapshot, next); err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			return nil, apierr.Conflict("order was modified concurrently, reload and retry")
		}
		return nil, err
	}

	order.Price = price
	order.OrderStatus = models.OrderPriced
	order.WizardState = next
	order.Version++
	return order, nil
}

// CollectPayment runs one terminal payment attempt for the order and, on
// success, advances the wizard to submission exactly once.
func (s *Service) CollectPayment(ctx context.Context, orderID string) (*models.Order, *models.TerminalPayment, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.PaymentStatus == models.PaymentPaid || order.PaymentStatus == models.PaymentBypassed {
		return nil, nil, apierr.Conflict("order payment is already settled")
	}

	stateAtStart, err := Next(order.WizardState, EventPaymentStarted)
	if err != nil {
		return nil, nil, err
	}
	if order.WizardState != stateAtStart {
		if err := s.Store.SetWizardState(ctx, order.ID, order.Version, stateAtStart); err != nil {
			if errors.Is(err, db.ErrVersionConflict) {
				return nil, nil, apierr.Conflict("order was modified concurrently, reload and retry")
			}
			return nil, nil, err
		}
		order.WizardState = stateAtStart
		order.Version++
	}

	payment, err := s.Terminal.Collect(ctx, order)
	if err != nil {
		return order, payment, err
	}

	switch payment.Status {
	case models.TerminalSucceeded:
		// The card has been charged: the money must land on the order. A
		// version conflict only ends the attempt when another desk already
		// settled the payment; an unrelated edit during the poll window
		// (test-flag toggle, price recalc) just means retrying with the
		// fresh version.
		for {
			next, err := Next(order.WizardState, EventPaymentSucceeded)
			if err != nil {
				return order, payment, err
			}
			err = s.Store.UpdateOrderPayment(ctx, order.ID, order.Version,
				models.PaymentPaid, payment.IntentID, false, next)
			if errors.Is(err, db.ErrVersionConflict) {
				fresh, ferr := s.getOrder(ctx, order.ID)
				if ferr != nil {
					return order, payment, ferr
				}
				if fresh.PaymentStatus == models.PaymentPaid || fresh.PaymentStatus == models.PaymentBypassed {
					return fresh, payment, nil
				}
				order = fresh
				continue
			}
			if err != nil {
				return order, payment, err
			}
			order.PaymentStatus = models.PaymentPaid
			order.PaymentIntent = payment.IntentID
			order.WizardState = next
			order.Version++
			return order, payment, nil
		}
	default:
		next, err := Next(order.WizardState, EventPaymentFailed)
		if err != nil {
			return order, payment, err
		}
		err = s.Store.UpdateOrderPayment(ctx, order.ID, order.Version,
			models.PaymentFailed, payment.IntentID, false, next)
		if errors.Is(err, db.ErrVersionConflict) {
			// Someone else moved the order while the attempt failed; hand
			// back the row as it is instead of a state we never wrote.
			fresh, ferr := s.getOrder(ctx, order.ID)
			if ferr != nil {
				return order, payment, ferr
			}
			return fresh, payment, nil
		}
		if err != nil {
			return order, payment, err
		}
		order.PaymentStatus = models.PaymentFailed
		order.PaymentIntent = payment.IntentID
		order.Version++
		return order, payment, nil
	}
}

// BypassPayment marks the order as payable later and moves the wizard on.
// Recorded explicitly so the statistics and reconciliation never mistake it
// for collected money.
func (s *Service) BypassPayment(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, err := Next(order.WizardState, EventPaymentBypassed)
	if err != nil {
		return nil, err
	}
	err = s.Store.UpdateOrderPayment(ctx, order.ID, order.Version,
		models.PaymentBypassed, order.PaymentIntent, true, next)
	if errors.Is(err, db.ErrVersionConflict) {
		return nil, apierr.Conflict("order was modified concurrently, reload and retry")
	}
	if err != nil {
		return nil, err
	}
	order.PaymentStatus = models.PaymentBypassed
	order.PaymentBypass = true
	order.WizardState = next
	order.Version++
	return order, nil
}

type SubmitRequest struct {
	OrderID         string          `json:"orderId"`
	Devices         []models.Device `json:"devices"`
	Resubmit        bool            `json:"resubmit"`
	PaymentBypassed bool            `json:"paymentBypassed"`
}

type SubmitResult struct {
	Order    *models.Order `json:"order"`
	Resubmit bool          `json:"resubmit"`
}

// Submit provisions the order in Myth and Skidata and stores both payloads.
// A changed device set relative to the original submission forces resubmit;
// otherwise the device/price-item invariant is enforced. On provider
// failure the recorded session id rides along on the error.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	order, err := s.getOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	resubmit := req.Resubmit || (order.Submitted() && DevicesChanged(order.Devices, req.Devices))

	// The desk may assert a bypass in the submit call itself.
	if req.PaymentBypassed && order.PaymentStatus != models.PaymentPaid && order.PaymentStatus != models.PaymentBypassed {
		order, err = s.BypassPayment(ctx, order.ID)
		if err != nil {
			return nil, err
		}
	}

	next, err := Next(order.WizardState, EventSubmitted)
	if err != nil {
		return nil, err
	}
	if order.Price == nil {
		return nil, apierr.Conflict("order has no calculated price")
	}
	if order.PaymentStatus != models.PaymentPaid && order.PaymentStatus != models.PaymentBypassed {
		return nil, apierr.Conflict("order payment is not settled")
	}

	var issues []apierr.Issue
	if !resubmit && len(req.Devices) != len(order.Price.Items) {
		issues = append(issues, apierr.Issue{
			Path:    []any{"devices"},
			Message: fmt.Sprintf("expected %d devices to match the calculated price", len(order.Price.Items)),
		})
	}
	for i, d := range req.Devices {
		if d.ProductID == "" {
			issues = append(issues, apierr.Issue{Path: []any{"devices", i, "productId"}, Message: "Required"})
		}
		if d.LifepassID == "" {
			issues = append(issues, apierr.Issue{Path: []any{"devices", i, "lifepassId"}, Message: "Required"})
		}
	}
	if len(issues) > 0 {
		return nil, apierr.Validation(issues)
	}

	if DevicesChanged(order.Devices, req.Devices) {
		if err := s.Store.ReplaceOrderDevices(ctx, order.ID, req.Devices); err != nil {
			return nil, err
		}
		order.Devices = req.Devices
	}

	rec := sessionlog.NewRecorder()
	root := rec.Start("submit-order", "")

	mythTask := rec.Start("myth.create-order", root.ID())
	mythPayload, mythErr := s.Myth.CreateOrder(ctx, ticketing.MythOrderRequest{
		OrderID:   order.ID,
		ResortID:  order.ResortID,
		StartDate: order.StartDate,
		Devices:   req.Devices,
	})
	mythTask.Done(mythErr)
	if mythErr != nil {
		return nil, s.failSubmission(ctx, rec, root, mythErr)
	}

	skidataTask := rec.Start("skidata.create-order", root.ID())
	skidataPayload, skidataErr := s.Skidata.CreateOrder(ctx, ticketing.SkidataOrderRequest{
		OrderID:   order.ID,
		ResortID:  order.ResortID,
		StartDate: order.StartDate,
		Devices:   req.Devices,
	})
	skidataTask.Done(skidataErr)
	if skidataErr != nil {
		return nil, s.failSubmission(ctx, rec, root, skidataErr)
	}

	if err := s.Store.UpdateOrderSubmission(ctx, order.ID, order.Version, mythPayload, skidataPayload, next); err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			return nil, apierr.Conflict("order was modified concurrently, reload and retry")
		}
		return nil, err
	}
	order.MythOrder = mythPayload
	order.SkidataOrder = skidataPayload
	order.OrderStatus = models.OrderSubmitted
	order.WizardState = next
	order.Version++

	root.Done(nil)
	if err := rec.Flush(ctx, s.Store); err != nil {
		s.Logger.Warnw("failed to persist session log", "session", rec.ID(), "error", err)
	}

	return &SubmitResult{Order: order, Resubmit: resubmit}, nil
}

// Discard abandons the current intent so the desk can start over with the
// same selection.
func (s *Service) Discard(ctx context.Context, orderID string) error {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Submitted() {
		return apierr.Conflict("submitted orders cannot be discarded")
	}
	return s.Store.DiscardOrderIntent(ctx, orderID)
}

func (s *Service) failSubmission(ctx context.Context, rec *sessionlog.Recorder, root *sessionlog.Task, cause error) error {
	root.Done(cause)
	if err := rec.Flush(ctx, s.Store); err != nil {
		s.Logger.Warnw("failed to persist session log", "session", rec.ID(), "error", err)
	}

	apiErr := apierr.Classify(ctx, cause)
	var provider *ticketing.ProviderError
	if errors.As(cause, &provider) && provider.Detail != "" {
		apiErr = &apierr.Error{Type: apierr.TypeUnknown, Message: provider.Detail}
	}
	apiErr.SessionID = rec.ID()
	return apiErr
}

func (s *Service) getOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.Store.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apierr.Conflict("order not found")
	}
	return order, nil
}
