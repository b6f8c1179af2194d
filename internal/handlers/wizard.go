package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mtech-resorts/cashdesk/internal/apierr"
	"github.com/mtech-resorts/cashdesk/internal/orders"
	"github.com/mtech-resorts/cashdesk/internal/pricing"
)

// Budgets per remote-heavy step. The payment window covers the full poll
// ceiling plus provider round-trips.
const (
	pricingBudget    = 30 * time.Second
	paymentBudget    = 3 * time.Minute
	submissionBudget = 60 * time.Second
	swapBudget       = 60 * time.Second
)

func (h *Handler) CreateOrderIntent(w http.ResponseWriter, r *http.Request) {
	var req orders.IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeResult(w, apierr.Fail(apierr.Unknown(err)))
		return
	}

	order, err := h.Orders.CreateIntent(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(order))
}

// CalculateOrderPrice prices a raw selection without an order, the
// click-and-collect path.
func (h *Handler) CalculateOrderPrice(w http.ResponseWriter, r *http.Request) {
	var req pricing.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeResult(w, apierr.Fail(apierr.Unknown(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pricingBudget)
	defer cancel()

	price, err := h.Orders.Calculator.Calculate(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(price))
}

// PriceOrder prices an existing intent and stores the snapshot on it.
func (h *Handler) PriceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pricingBudget)
	defer cancel()

	order, err := h.Orders.CalculatePrice(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(order))
}

func (h *Handler) CollectPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), paymentBudget)
	defer cancel()

	order, payment, err := h.Orders.CollectPayment(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(map[string]any{
		"order":   order,
		"payment": payment,
	}))
}

func (h *Handler) BypassPayment(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.BypassPayment(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(order))
}

func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeResult(w, apierr.Fail(apierr.Unknown(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), submissionBudget)
	defer cancel()

	result, err := h.Orders.Submit(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(result))
}

func (h *Handler) DiscardOrderIntent(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.Discard(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(nil))
}

// RetrieveOrder serves the kiosk lookup: body {"orderId": "..."}.
func (h *Handler) RetrieveOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeResult(w, apierr.Fail(apierr.Unknown(err)))
		return
	}

	order, err := h.Database.GetOrderByID(r.Context(), req.OrderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if order == nil {
		h.writeResult(w, apierr.Fail(apierr.Conflict("order not found")))
		return
	}
	h.writeResult(w, apierr.OK(order))
}
