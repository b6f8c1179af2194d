// Package terminal drives card payments on the physical desk terminals: it
// creates a payment at the provider, polls it to a final status, and keeps
// the local payment rows in step.
package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtech-resorts/cashdesk/models"
)

type CreateRequest struct {
	OrderID  string          `json:"orderId"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type CreateResponse struct {
	InvoiceID string `json:"invoiceId"`
	IntentID  string `json:"paymentIntentId"`
	Status    string `json:"status"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// Client talks to the payment provider's terminal API.
type Client struct {
	address string
	apiKey  string
	http    *http.Client
}

func NewClient(address, apiKey string) *Client {
	return &Client{
		address: address,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/terminal/payments", c.address), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal payment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status code from terminal provider: %d", resp.StatusCode)
	}

	var created CreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode terminal response: %w", err)
	}
	return &created, nil
}

func (c *Client) GetStatus(ctx context.Context, intentID string) (models.TerminalPaymentStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/terminal/payments/%s", c.address, intentID), nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to fetch payment status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code from terminal provider: %d", resp.StatusCode)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("failed to decode status response: %w", err)
	}
	return ParseStatus(status.Status)
}

// ParseStatus maps the provider's lowercase status strings onto ours.
func ParseStatus(s string) (models.TerminalPaymentStatus, error) {
	switch s {
	case "created":
		return models.TerminalCreated, nil
	case "processing":
		return models.TerminalProcessing, nil
	case "succeeded":
		return models.TerminalSucceeded, nil
	case "failed":
		return models.TerminalFailed, nil
	case "canceled":
		return models.TerminalCanceled, nil
	}
	return "", fmt.Errorf("unknown terminal payment status %q", s)
}
