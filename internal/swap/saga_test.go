package swap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mtech-resorts/cashdesk/internal/apierr"
	"github.com/mtech-resorts/cashdesk/internal/ticketing"
	"github.com/mtech-resorts/cashdesk/models"
)

type fakeMyth struct {
	swapCalls   int
	createCalls int
	cancelCalls int

	swapErr   error
	createErr error
	cancelErr error
}

func (f *fakeMyth) SwapDevice(context.Context, string, string, string) error {
	f.swapCalls++
	return f.swapErr
}

func (f *fakeMyth) CreateSkipass(context.Context, string, string) error {
	f.createCalls++
	return f.createErr
}

func (f *fakeMyth) CancelSkipass(context.Context, string, string) error {
	f.cancelCalls++
	return f.cancelErr
}

type fakeSwapStore struct {
	order *models.Order
	saga  *models.SwapSaga

	holders []models.Order
	updates []models.SwapStepStatus
}

func (f *fakeSwapStore) GetOrderByID(context.Context, string) (*models.Order, error) {
	return f.order, nil
}

func (f *fakeSwapStore) GetOrCreateSwapSaga(_ context.Context, saga *models.SwapSaga) (*models.SwapSaga, error) {
	if f.saga == nil {
		clone := *saga
		f.saga = &clone
	}
	clone := *f.saga
	return &clone, nil
}

func (f *fakeSwapStore) UpdateSwapStep(_ context.Context, _ string, step int, status models.SwapStepStatus, detail string) error {
	f.saga.Step = step
	f.saga.StepStatus = status
	f.saga.ErrorDetail = detail
	f.updates = append(f.updates, status)
	return nil
}

func (f *fakeSwapStore) OrdersByLifepass(context.Context, string) ([]models.Order, error) {
	return f.holders, nil
}

func newSaga(store *fakeSwapStore, myth *fakeMyth) *Saga {
	return &Saga{Store: store, Myth: myth, Logger: zap.NewNop().Sugar()}
}

func swapRequest() Request {
	return Request{
		OrderID:   "order-1",
		ResortID:  "resort-1",
		OldPassID: "LP-OLD",
		NewPassID: "LP-NEW",
	}
}

func TestAdvanceRunsOneStepPerCall(t *testing.T) {
	store := &fakeSwapStore{order: &models.Order{ID: "order-1"}}
	myth := &fakeMyth{}
	saga := newSaga(store, myth)

	for step := 1; step <= 3; step++ {
		result, err := saga.Advance(context.Background(), swapRequest())
		require.NoError(t, err)
		assert.Equal(t, step+1, result.Saga.Step)
	}

	assert.Equal(t, 1, myth.swapCalls)
	assert.Equal(t, 1, myth.createCalls)
	assert.Equal(t, 1, myth.cancelCalls)
	assert.True(t, store.saga.Done())
	assert.Equal(t, models.SwapStepCompleted, store.saga.StepStatus)
}

func TestAdvanceParksOnFailedStep(t *testing.T) {
	store := &fakeSwapStore{order: &models.Order{ID: "order-1"}}
	myth := &fakeMyth{createErr: &ticketing.ProviderError{
		Provider: "myth", Status: 500, Detail: "skipass service unavailable",
	}}
	saga := newSaga(store, myth)

	// Step 1 succeeds.
	_, err := saga.Advance(context.Background(), swapRequest())
	require.NoError(t, err)
	require.Equal(t, 1, myth.swapCalls)

	// Step 2 fails and the saga parks there.
	result, err := saga.Advance(context.Background(), swapRequest())
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "skipass service unavailable", apiErr.Message)
	require.NotNil(t, result)
	assert.Equal(t, models.SwapStepCreateSkipass, result.Saga.Step)
	assert.Equal(t, models.SwapStepFailed, result.Saga.StepStatus)

	// Retrying resumes at step 2; the completed step 1 is never re-run.
	myth.createErr = nil
	result, err = saga.Advance(context.Background(), swapRequest())
	require.NoError(t, err)
	assert.Equal(t, models.SwapStepCancelSkipass, result.Saga.Step)
	assert.Equal(t, 1, myth.swapCalls)
	assert.Equal(t, 2, myth.createCalls)
	assert.Equal(t, 0, myth.cancelCalls)
}

func TestAdvanceTreatsConflictAsAlreadyDone(t *testing.T) {
	store := &fakeSwapStore{order: &models.Order{ID: "order-1"}}
	myth := &fakeMyth{swapErr: &ticketing.ProviderError{Provider: "myth", Status: 409}}
	saga := newSaga(store, myth)

	result, err := saga.Advance(context.Background(), swapRequest())
	require.NoError(t, err)
	assert.Equal(t, models.SwapStepCreateSkipass, result.Saga.Step)
}

func TestAdvanceReturnOnlySkipsToCancel(t *testing.T) {
	store := &fakeSwapStore{order: &models.Order{ID: "order-1"}}
	myth := &fakeMyth{}
	saga := newSaga(store, myth)

	req := Request{
		OrderID:    "order-1",
		ResortID:   "resort-1",
		OldPassID:  "LP-OLD",
		ReturnOnly: true,
	}

	result, err := saga.Advance(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Saga.Done())
	assert.Equal(t, 0, myth.swapCalls)
	assert.Equal(t, 0, myth.createCalls)
	assert.Equal(t, 1, myth.cancelCalls)
	assert.Nil(t, result.Conflicts)
}

func TestAdvanceCompletedSagaIsANoOp(t *testing.T) {
	store := &fakeSwapStore{
		order: &models.Order{ID: "order-1"},
		saga: &models.SwapSaga{
			ID:         "saga-1",
			Step:       models.SwapStepCancelSkipass + 1,
			StepStatus: models.SwapStepCompleted,
		},
	}
	myth := &fakeMyth{}
	saga := newSaga(store, myth)

	result, err := saga.Advance(context.Background(), swapRequest())
	require.NoError(t, err)
	assert.True(t, result.Saga.Done())
	assert.Equal(t, 0, myth.swapCalls)
	assert.Equal(t, 0, myth.cancelCalls)
}

func TestAdvanceReportsDoubleAllocation(t *testing.T) {
	store := &fakeSwapStore{
		order: &models.Order{ID: "order-1"},
		holders: []models.Order{
			{ID: "order-1"},
			{ID: "order-2"},
		},
	}
	saga := newSaga(store, &fakeMyth{})

	result, err := saga.Advance(context.Background(), swapRequest())
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "order-2", result.Conflicts[0].ID)
}

func TestAdvanceValidation(t *testing.T) {
	saga := newSaga(&fakeSwapStore{}, &fakeMyth{})

	_, err := saga.Advance(context.Background(), Request{OrderID: "order-1", ResortID: "resort-1", OldPassID: "LP-OLD"})
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.TypeValidation, apiErr.Type)
	assert.Equal(t, []any{"newPassId"}, apiErr.Issues[0].Path)

	_, err = saga.Advance(context.Background(), Request{})
	require.ErrorAs(t, err, &apiErr)
	assert.Len(t, apiErr.Issues, 4)
}

func TestAdvanceUnknownOrder(t *testing.T) {
	saga := newSaga(&fakeSwapStore{}, &fakeMyth{})

	_, err := saga.Advance(context.Background(), swapRequest())
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.TypeConflict, apiErr.Type)
}
