package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mtech-resorts/cashdesk/internal/apierr"
	"github.com/mtech-resorts/cashdesk/internal/db"
	"github.com/mtech-resorts/cashdesk/internal/swap"
	"github.com/mtech-resorts/cashdesk/models"
)

// SearchOrders lists orders for the admin screen with filters and a keyset
// cursor carried in query parameters.
func (h *Handler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := db.SearchOrdersParams{
		Query:       q.Get("q"),
		ResortID:    q.Get("resortId"),
		IncludeTest: q.Get("includeTest") == "true",
		AfterID:     q.Get("afterId"),
	}
	for _, s := range q["paymentStatus"] {
		params.PaymentStatus = append(params.PaymentStatus, models.PaymentStatus(s))
	}
	for _, s := range q["orderStatus"] {
		params.OrderStatus = append(params.OrderStatus, models.OrderStatus(s))
	}
	if v := q.Get("pageSize"); v != "" {
		params.PageSize, _ = strconv.Atoi(v)
	}
	if v := q.Get("afterCreatedAt"); v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			params.AfterCreatedAt = &t
		}
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			params.CreatedFrom = &t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			end := t.Add(24*time.Hour - time.Nanosecond)
			params.CreatedTo = &end
		}
	}

	found, err := h.Database.SearchOrders(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(found))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Database.GetOrderByID(r.Context(), chi.URLParam(r, "orderID"))
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

func (h *Handler) ToggleTestOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TestOrder bool  `json:"testOrder"`
		Version   int64 `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeResult(w, apierr.Fail(apierr.Unknown(err)))
		return
	}

	orderID := chi.URLParam(r, "orderID")
	err := h.Database.SetTestOrder(r.Context(), orderID, req.Version, req.TestOrder)
	if errors.Is(err, db.ErrVersionConflict) {
		h.writeResult(w, apierr.Fail(apierr.Conflict("order was modified concurrently, reload and retry")))
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(nil))
}

// OrdersByDevice reports every order holding a device code, the advisory
// shown before swapping a pass onto it.
func (h *Handler) OrdersByDevice(w http.ResponseWriter, r *http.Request) {
	found, err := h.Database.OrdersByLifepass(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(found))
}

// Receipt hands the browser over to the receipt service.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	http.Redirect(w, r,
		h.Config.ReceiptAddress+"/api/orders/"+orderID+"/receipt",
		http.StatusTemporaryRedirect)
}

func (h *Handler) GetSessionLog(w http.ResponseWriter, r *http.Request) {
	log, err := h.Database.GetSessionLog(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if log == nil {
		h.writeResult(w, apierr.Fail(apierr.Conflict("session not found")))
		return
	}
	h.writeResult(w, apierr.OK(log))
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		h.writeResult(w, apierr.Fail(apierr.Validation([]apierr.Issue{
			{Path: []any{"from"}, Message: "Required"},
			{Path: []any{"to"}, Message: "Required"},
		})))
		return
	}

	computed, err := h.Stats.Compute(r.Context(), from, to, q.Get("includeTest") == "true")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(computed))
}

// GetSwapSaga shows a saga's position, used to inspect a parked swap.
func (h *Handler) GetSwapSaga(w http.ResponseWriter, r *http.Request) {
	saga, err := h.Database.GetSwapSaga(r.Context(), chi.URLParam(r, "sagaID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if saga == nil {
		h.writeResult(w, apierr.Fail(apierr.Conflict("swap saga not found")))
		return
	}
	h.writeResult(w, apierr.OK(saga))
}

// SwapLifepass runs one step of the swap saga per call; the desk keeps
// calling until the saga reports done or parks on a failed step.
func (h *Handler) SwapLifepass(w http.ResponseWriter, r *http.Request) {
	var req swap.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeResult(w, apierr.Fail(apierr.Unknown(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), swapBudget)
	defer cancel()

	result, err := h.Swap.Advance(ctx, req)
	if err != nil {
		// A failed step still reports the parked saga alongside the error.
		res := apierr.Fail(apierr.Classify(r.Context(), err))
		res.Data = result
		h.writeResult(w, res)
		return
	}
	h.writeResult(w, apierr.OK(result))
}
