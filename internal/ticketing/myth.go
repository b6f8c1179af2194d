package ticketing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mtech-resorts/cashdesk/models"
)

type Myth struct {
	client
}

func NewMyth(address, apiKey string) *Myth {
	return &Myth{client: newClient("myth", address, apiKey)}
}

type MythOrderRequest struct {
	OrderID   string          `json:"orderId"`
	ResortID  string          `json:"resortId"`
	StartDate string          `json:"startDate"`
	Devices   []models.Device `json:"devices"`
}

// CreateOrder provisions the tickets for the order and returns the raw
// submission payload, stored on the order for later inspection.
func (m *Myth) CreateOrder(ctx context.Context, req MythOrderRequest) (json.RawMessage, error) {
	return m.do(ctx, http.MethodPost, "/api/orders", req)
}

func (m *Myth) GetOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	return m.do(ctx, http.MethodGet, "/api/orders/"+orderID, nil)
}

// SwapDevice moves the ticket mapping from the old device code to the new
// one for the given order.
func (m *Myth) SwapDevice(ctx context.Context, orderID, oldCode, newCode string) error {
	_, err := m.do(ctx, http.MethodPost, "/api/devices/swap", map[string]string{
		"orderId": orderID,
		"oldCode": oldCode,
		"newCode": newCode,
	})
	return err
}

// CreateSkipass issues an active skipass entitlement on the device.
func (m *Myth) CreateSkipass(ctx context.Context, resortID, passID string) error {
	_, err := m.do(ctx, http.MethodPost, "/api/skipasses", map[string]string{
		"resortId": resortID,
		"passId":   passID,
	})
	return err
}

// CancelSkipass revokes the skipass entitlement on the device.
func (m *Myth) CancelSkipass(ctx context.Context, resortID, passID string) error {
	_, err := m.do(ctx, http.MethodPost, fmt.Sprintf("/api/skipasses/%s/cancel", passID), map[string]string{
		"resortId": resortID,
	})
	return err
}
