package terminal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mtech-resorts/cashdesk/internal/apierr"
	"github.com/mtech-resorts/cashdesk/models"
)

type scriptedProvider struct {
	created  *CreateResponse
	statuses []models.TerminalPaymentStatus
	polls    int
}

func (p *scriptedProvider) CreatePayment(context.Context, CreateRequest) (*CreateResponse, error) {
	return p.created, nil
}

func (p *scriptedProvider) GetStatus(context.Context, string) (models.TerminalPaymentStatus, error) {
	if p.polls < len(p.statuses) {
		p.polls++
		return p.statuses[p.polls-1], nil
	}
	return p.statuses[len(p.statuses)-1], nil
}

type recordingStore struct {
	attempts int
	payments []*models.TerminalPayment
	updates  []models.TerminalPaymentStatus
}

func (s *recordingStore) CreatePayment(_ context.Context, payment *models.TerminalPayment) error {
	s.payments = append(s.payments, payment)
	return nil
}

func (s *recordingStore) UpdatePaymentStatus(_ context.Context, _ string, status models.TerminalPaymentStatus) error {
	s.updates = append(s.updates, status)
	return nil
}

func (s *recordingStore) CountPaymentAttempts(context.Context, string) (int, error) {
	return s.attempts, nil
}

func pricedOrder() *models.Order {
	return &models.Order{
		ID: "order-1",
		Price: &models.CalculatedPrice{
			CumulativeGross: decimal.RequireFromString("72.60"),
		},
	}
}

func testDriver(provider Provider, store PaymentStore) *Driver {
	return &Driver{
		Provider: provider,
		Store:    store,
		Logger:   zap.NewNop().Sugar(),
		Interval: time.Millisecond,
		MaxPolls: 5,
	}
}

func TestCollectPollsToFinalStatus(t *testing.T) {
	provider := &scriptedProvider{
		created: &CreateResponse{InvoiceID: "inv-1", IntentID: "pi_123", Status: "created"},
		statuses: []models.TerminalPaymentStatus{
			models.TerminalProcessing,
			models.TerminalProcessing,
			models.TerminalSucceeded,
		},
	}
	store := &recordingStore{}
	driver := testDriver(provider, store)

	payment, err := driver.Collect(context.Background(), pricedOrder())
	require.NoError(t, err)
	assert.Equal(t, models.TerminalSucceeded, payment.Status)
	assert.Equal(t, "pi_123", payment.IntentID)
	assert.Equal(t, 1, payment.Attempt)

	require.Len(t, store.payments, 1)
	// One update per status change, not per poll.
	assert.Equal(t, []models.TerminalPaymentStatus{
		models.TerminalProcessing,
		models.TerminalSucceeded,
	}, store.updates)
}

func TestCollectExhaustionBecomesTimeout(t *testing.T) {
	provider := &scriptedProvider{
		created:  &CreateResponse{IntentID: "pi_123", Status: "processing"},
		statuses: []models.TerminalPaymentStatus{models.TerminalProcessing},
	}
	store := &recordingStore{}
	driver := testDriver(provider, store)

	payment, err := driver.Collect(context.Background(), pricedOrder())
	require.NoError(t, err)
	assert.Equal(t, models.TerminalTimeout, payment.Status)
	assert.Equal(t, models.TerminalTimeout, store.updates[len(store.updates)-1])
}

func TestCollectRetryLimit(t *testing.T) {
	store := &recordingStore{attempts: MaxManualRetries}
	driver := testDriver(&scriptedProvider{}, store)

	_, err := driver.Collect(context.Background(), pricedOrder())
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.TypeConflict, apiErr.Type)
	assert.Empty(t, store.payments)
}

func TestCollectWithoutPrice(t *testing.T) {
	driver := testDriver(&scriptedProvider{}, &recordingStore{})

	_, err := driver.Collect(context.Background(), &models.Order{ID: "order-1"})
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.TypeConflict, apiErr.Type)
}

func TestCollectAbandonedByCaller(t *testing.T) {
	provider := &scriptedProvider{
		created:  &CreateResponse{IntentID: "pi_123", Status: "processing"},
		statuses: []models.TerminalPaymentStatus{models.TerminalProcessing},
	}
	store := &recordingStore{}
	driver := testDriver(provider, store)
	driver.MaxPolls = 1000

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	payment, err := driver.Collect(ctx, pricedOrder())
	require.ErrorIs(t, err, context.Canceled)
	// The row stays in its in-flight state for the reconciler.
	require.NotNil(t, payment)
	assert.False(t, payment.Status.Terminal())
	assert.NotContains(t, store.updates, models.TerminalTimeout)
}

func TestParseStatus(t *testing.T) {
	for raw, want := range map[string]models.TerminalPaymentStatus{
		"created":    models.TerminalCreated,
		"processing": models.TerminalProcessing,
		"succeeded":  models.TerminalSucceeded,
		"failed":     models.TerminalFailed,
		"canceled":   models.TerminalCanceled,
	} {
		status, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, want, status)
	}

	_, err := ParseStatus("exploded")
	assert.Error(t, err)
}
