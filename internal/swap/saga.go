// Package swap runs the lifepass swap/return saga against Myth: move the
// device mapping, issue the skipass on the new device, cancel it on the old
// one. Progress is persisted per (order, old pass, new pass), each call
// advances exactly one step, and a failed step parks the saga until an
// operator retries it. Completed steps are never re-run.
package swap

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mtech-resorts/cashdesk/internal/apierr"
	"github.com/mtech-resorts/cashdesk/internal/ticketing"
	"github.com/mtech-resorts/cashdesk/models"
)

type MythAPI interface {
	SwapDevice(ctx context.Context, orderID, oldCode, newCode string) error
	CreateSkipass(ctx context.Context, resortID, passID string) error
	CancelSkipass(ctx context.Context, resortID, passID string) error
}

type Store interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrCreateSwapSaga(ctx context.Context, saga *models.SwapSaga) (*models.SwapSaga, error)
	UpdateSwapStep(ctx context.Context, id string, step int, status models.SwapStepStatus, detail string) error
	OrdersByLifepass(ctx context.Context, code string) ([]models.Order, error)
}

type Saga struct {
	Store  Store
	Myth   MythAPI
	Logger *zap.SugaredLogger
}

type Request struct {
	OrderID    string `json:"orderId"`
	ResortID   string `json:"resortId"`
	OldPassID  string `json:"oldPassId"`
	NewPassID  string `json:"newPassId"`
	ReturnOnly bool   `json:"returnOnly"`
}

// Result carries the saga position after the attempted step plus the
// double-allocation advisory: other orders already holding the new device.
type Result struct {
	Saga      *models.SwapSaga `json:"saga"`
	Conflicts []models.Order   `json:"conflicts,omitempty"`
}

// Advance runs the saga's current step. Re-posting the same swap resumes
// where it stopped; a conflict reply from Myth counts as the step already
// being done.
func (s *Saga) Advance(ctx context.Context, req Request) (*Result, error) {
	if issues := validate(req); len(issues) > 0 {
		return nil, apierr.Validation(issues)
	}

	order, err := s.Store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apierr.Conflict("order not found")
	}

	// A return has no new device: the saga starts (and ends) at the
	// cancellation step.
	firstStep := models.SwapStepSwapMapping
	if req.ReturnOnly {
		firstStep = models.SwapStepCancelSkipass
	}
	saga, err := s.Store.GetOrCreateSwapSaga(ctx, &models.SwapSaga{
		ID:         uuid.New().String(),
		OrderID:    req.OrderID,
		ResortID:   req.ResortID,
		OldPassID:  req.OldPassID,
		NewPassID:  req.NewPassID,
		ReturnOnly: req.ReturnOnly,
		Step:       firstStep,
		StepStatus: models.SwapStepPending,
	})
	if err != nil {
		return nil, err
	}

	if !saga.Done() {
		if err := s.runStep(ctx, saga); err != nil {
			detail := err.Error()
			var provider *ticketing.ProviderError
			if errors.As(err, &provider) && provider.Detail != "" {
				detail = provider.Detail
			}
			if uerr := s.Store.UpdateSwapStep(ctx, saga.ID, saga.Step, models.SwapStepFailed, detail); uerr != nil {
				return nil, uerr
			}
			saga.StepStatus = models.SwapStepFailed
			saga.ErrorDetail = detail

			apiErr := apierr.Classify(ctx, err)
			apiErr.Message = detail
			return &Result{Saga: saga}, apiErr
		}

		status := models.SwapStepPending
		saga.Step++
		if saga.Done() {
			status = models.SwapStepCompleted
		}
		if err := s.Store.UpdateSwapStep(ctx, saga.ID, saga.Step, status, ""); err != nil {
			return nil, err
		}
		saga.StepStatus = status
		saga.ErrorDetail = ""
	}

	var conflicts []models.Order
	if req.NewPassID != "" {
		conflicts, err = s.advisoryConflicts(ctx, req.NewPassID, req.OrderID)
		if err != nil {
			s.Logger.Warnw("double-allocation lookup failed", "pass", req.NewPassID, "error", err)
		}
	}
	return &Result{Saga: saga, Conflicts: conflicts}, nil
}

func (s *Saga) runStep(ctx context.Context, saga *models.SwapSaga) error {
	var err error
	switch saga.Step {
	case models.SwapStepSwapMapping:
		err = s.Myth.SwapDevice(ctx, saga.OrderID, saga.OldPassID, saga.NewPassID)
	case models.SwapStepCreateSkipass:
		err = s.Myth.CreateSkipass(ctx, saga.ResortID, saga.NewPassID)
	case models.SwapStepCancelSkipass:
		err = s.Myth.CancelSkipass(ctx, saga.ResortID, saga.OldPassID)
	default:
		return apierr.Conflict("swap saga already completed")
	}

	var provider *ticketing.ProviderError
	if errors.As(err, &provider) && provider.AlreadyDone() {
		s.Logger.Infow("swap step already applied at provider",
			"saga", saga.ID, "step", saga.Step)
		return nil
	}
	return err
}

func (s *Saga) advisoryConflicts(ctx context.Context, passID, orderID string) ([]models.Order, error) {
	holders, err := s.Store.OrdersByLifepass(ctx, passID)
	if err != nil {
		return nil, err
	}
	var conflicts []models.Order
	for _, o := range holders {
		if o.ID != orderID {
			conflicts = append(conflicts, o)
		}
	}
	return conflicts, nil
}

func validate(req Request) []apierr.Issue {
	var issues []apierr.Issue
	if req.OrderID == "" {
		issues = append(issues, apierr.Issue{Path: []any{"orderId"}, Message: "Required"})
	}
	if req.ResortID == "" {
		issues = append(issues, apierr.Issue{Path: []any{"resortId"}, Message: "Required"})
	}
	if req.OldPassID == "" {
		issues = append(issues, apierr.Issue{Path: []any{"oldPassId"}, Message: "Required"})
	}
	if req.NewPassID == "" && !req.ReturnOnly {
		issues = append(issues, apierr.Issue{Path: []any{"newPassId"}, Message: "Required"})
	}
	return issues
}
