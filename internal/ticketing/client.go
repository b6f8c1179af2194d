// Package ticketing wraps the Myth and Skidata HTTP APIs the resort orders
// are provisioned into.
package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProviderError is a non-2xx reply from a ticketing provider. Detail is the
// human-readable message dug out of the nested error payload when present.
type ProviderError struct {
	Provider string
	Status   int
	Detail   string
	Raw      []byte
}

func (e *ProviderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Detail, e.Status)
	}
	return fmt.Sprintf("%s: status %d", e.Provider, e.Status)
}

// AlreadyDone reports a conflict reply, which the sagas treat as an
// idempotent re-run of a completed step.
func (e *ProviderError) AlreadyDone() bool {
	return e.Status == http.StatusConflict
}

// extractDetail walks the provider's error shapes: either a flat
// {"detail": "..."} or the nested {"details":{"response":{"detail":"..."}}}.
func extractDetail(raw []byte) string {
	var nested struct {
		Detail  string `json:"detail"`
		Details struct {
			Response struct {
				Detail string `json:"detail"`
			} `json:"response"`
		} `json:"details"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return ""
	}
	if nested.Details.Response.Detail != "" {
		return nested.Details.Response.Detail
	}
	return nested.Detail
}

type client struct {
	provider string
	address  string
	apiKey   string
	http     *http.Client
}

func newClient(provider, address, apiKey string) client {
	return client{
		provider: provider,
		address:  address,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.address+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", c.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{
			Provider: c.provider,
			Status:   resp.StatusCode,
			Detail:   extractDetail(raw),
			Raw:      raw,
		}
	}
	return raw, nil
}
