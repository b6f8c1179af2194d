package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mtech-resorts/cashdesk/internal/apierr"
)

// OrderReader is the read side of a ticketing provider, used for the raw
// order inspection screens.
type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (json.RawMessage, error)
}

// MythOrder returns the provider's own record of the order, untouched.
func (h *Handler) MythOrder(w http.ResponseWriter, r *http.Request) {
	h.providerOrder(w, r, h.Myth)
}

func (h *Handler) SkidataOrder(w http.ResponseWriter, r *http.Request) {
	h.providerOrder(w, r, h.Skidata)
}

func (h *Handler) providerOrder(w http.ResponseWriter, r *http.Request, reader OrderReader) {
	payload, err := reader.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, apierr.OK(payload))
}
