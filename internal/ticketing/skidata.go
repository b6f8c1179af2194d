package ticketing

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mtech-resorts/cashdesk/models"
)

type Skidata struct {
	client
}

func NewSkidata(address, apiKey string) *Skidata {
	return &Skidata{client: newClient("skidata", address, apiKey)}
}

type SkidataOrderRequest struct {
	OrderID   string          `json:"orderId"`
	ResortID  string          `json:"resortId"`
	StartDate string          `json:"startDate"`
	Devices   []models.Device `json:"devices"`
}

func (s *Skidata) CreateOrder(ctx context.Context, req SkidataOrderRequest) (json.RawMessage, error) {
	return s.do(ctx, http.MethodPost, "/api/orders", req)
}

func (s *Skidata) GetOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	return s.do(ctx, http.MethodGet, "/api/orders/"+orderID, nil)
}
