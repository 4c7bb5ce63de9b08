package oracle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbonlink/carbonlink-backend/internal/carbon"
	"carbonlink/carbonlink-backend/internal/environment"
)

// MockContract is a mock implementation of the ProjectContract interface
type MockContract struct {
	mock.Mock
}

func (m *MockContract) SendRequest(ctx context.Context, encodedArgs []byte) (string, error) {
	args := m.Called(ctx, encodedArgs)
	return args.String(0), args.Error(1)
}

func (m *MockContract) ConfirmSubmission(ctx context.Context, requestID string) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

func (m *MockContract) Response(ctx context.Context, requestID string) ([]byte, []byte, error) {
	args := m.Called(ctx, requestID)
	var payload, errPayload []byte
	if args.Get(0) != nil {
		payload = args.Get(0).([]byte)
	}
	if args.Get(1) != nil {
		errPayload = args.Get(1).([]byte)
	}
	return payload, errPayload, args.Error(2)
}

func testCoordinate() environment.Coordinate {
	return environment.Coordinate{Latitude: -3.4653, Longitude: -62.2159, Elevation: 45}
}

func testParams() carbon.ProjectParameters {
	return carbon.ProjectParameters{
		AreaHectares:     100,
		DurationYears:    10,
		ProjectType:      carbon.ProjectReforestation,
		BaselineScenario: carbon.BaselineBusinessAsUsual,
	}
}

func TestSubmitTransitionsToPending(t *testing.T) {
	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-1", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-1").Return(nil)

	coordinator := NewCoordinator(contract, zap.NewNop())
	projectID := uuid.New()

	req, err := coordinator.Submit(context.Background(), projectID, testCoordinate(), testParams())
	require.NoError(t, err)
	assert.Equal(t, "req-1", req.ID)
	assert.Equal(t, StatePending, req.State)
	assert.False(t, req.SubmittedAt.IsZero())
	contract.AssertExpectations(t)
}

func TestSubmitRejectsSecondInFlightRequest(t *testing.T) {
	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-1", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-1").Return(nil)

	coordinator := NewCoordinator(contract, zap.NewNop())
	projectID := uuid.New()

	_, err := coordinator.Submit(context.Background(), projectID, testCoordinate(), testParams())
	require.NoError(t, err)

	_, err = coordinator.Submit(context.Background(), projectID, testCoordinate(), testParams())
	assert.ErrorIs(t, err, ErrRequestInFlight)
}

func TestSubmitFailsOnSendError(t *testing.T) {
	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("", errors.New("insufficient funds"))

	coordinator := NewCoordinator(contract, zap.NewNop())
	projectID := uuid.New()

	req, err := coordinator.Submit(context.Background(), projectID, testCoordinate(), testParams())
	require.Error(t, err)
	assert.Equal(t, StateFailed, req.State)

	var rejection *RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, "submit", rejection.Stage)

	// A failed request is terminal; the project can submit again.
	contract.ExpectedCalls = nil
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-2", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-2").Return(nil)
	_, err = coordinator.Submit(context.Background(), projectID, testCoordinate(), testParams())
	assert.NoError(t, err)
}

func TestPollFulfillsRequest(t *testing.T) {
	payload := EncodeResult(Result{
		NetCarbonBalance:   4.2,
		TotalProjectCarbon: 4200,
		Confidence:         0.95,
		Uncertainty:        5,
	})

	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-1", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-1").Return(nil)
	contract.On("Response", mock.Anything, "req-1").Return(payload, nil, nil)

	coordinator := NewCoordinator(contract, zap.NewNop())
	projectID := uuid.New()

	_, err := coordinator.Submit(context.Background(), projectID, testCoordinate(), testParams())
	require.NoError(t, err)

	req, err := coordinator.Poll(context.Background(), projectID)
	require.NoError(t, err)
	assert.Equal(t, StateFulfilled, req.State)
	require.NotNil(t, req.Result)
	assert.InDelta(t, 4.2, req.Result.NetCarbonBalance, 1e-9)
	assert.InDelta(t, 4200.0, req.Result.TotalProjectCarbon, 1e-9)
}

func TestPollWhileStillPending(t *testing.T) {
	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-1", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-1").Return(nil)
	contract.On("Response", mock.Anything, "req-1").Return(nil, nil, nil)

	coordinator := NewCoordinator(contract, zap.NewNop())
	projectID := uuid.New()

	_, err := coordinator.Submit(context.Background(), projectID, testCoordinate(), testParams())
	require.NoError(t, err)

	req, err := coordinator.Poll(context.Background(), projectID)
	require.NoError(t, err)
	assert.Equal(t, StatePending, req.State)
	assert.Nil(t, req.Result)
}

func TestPollFailsOnErrorPayload(t *testing.T) {
	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-1", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-1").Return(nil)
	contract.On("Response", mock.Anything, "req-1").Return(nil, []byte("source script error"), nil)

	coordinator := NewCoordinator(contract, zap.NewNop())
	projectID := uuid.New()

	_, err := coordinator.Submit(context.Background(), projectID, testCoordinate(), testParams())
	require.NoError(t, err)

	req, err := coordinator.Poll(context.Background(), projectID)
	require.Error(t, err)
	assert.Equal(t, StateFailed, req.State)

	var rejection *RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, "fulfill", rejection.Stage)
	assert.Equal(t, "source script error", rejection.Reason)
}

func TestPollUnknownProject(t *testing.T) {
	coordinator := NewCoordinator(new(MockContract), zap.NewNop())

	_, err := coordinator.Poll(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoRequest)
}

func TestWaitForCompletionFulfilled(t *testing.T) {
	payload := EncodeResult(Result{NetCarbonBalance: 1.5, TotalProjectCarbon: 1500, Confidence: 0.9, Uncertainty: 10})

	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-1", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-1").Return(nil)
	contract.On("Response", mock.Anything, "req-1").Return(nil, nil, nil).Twice()
	contract.On("Response", mock.Anything, "req-1").Return(payload, nil, nil)

	coordinator := NewCoordinator(contract, zap.NewNop(), WithPollInterval(5*time.Millisecond))
	projectID := uuid.New()

	assessment, err := coordinator.SubmitAndAwait(context.Background(), projectID, testCoordinate(), testParams(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, assessment)
	assert.InDelta(t, 1500.0, assessment.TotalProjectCarbon, 1e-9)
}

func TestWaitForCompletionTimesOut(t *testing.T) {
	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-1", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-1").Return(nil)
	contract.On("Response", mock.Anything, "req-1").Return(nil, nil, nil)

	coordinator := NewCoordinator(contract, zap.NewNop(), WithPollInterval(5*time.Millisecond))
	projectID := uuid.New()

	_, err := coordinator.SubmitAndAwait(context.Background(), projectID, testCoordinate(), testParams(), 30*time.Millisecond)
	require.Error(t, err)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "req-1", timeout.RequestID)

	req, ok := coordinator.Request(projectID)
	require.True(t, ok)
	assert.Equal(t, StateTimedOut, req.State)

	// Timed out is terminal, so a fresh submission is allowed.
	_, err = coordinator.Submit(context.Background(), projectID, testCoordinate(), testParams())
	assert.NoError(t, err)
}

func TestWaitForCompletionCancelled(t *testing.T) {
	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-1", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-1").Return(nil)
	contract.On("Response", mock.Anything, "req-1").Return(nil, nil, nil)

	coordinator := NewCoordinator(contract, zap.NewNop(), WithPollInterval(5*time.Millisecond))
	projectID := uuid.New()

	_, err := coordinator.Submit(context.Background(), projectID, testCoordinate(), testParams())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = coordinator.WaitForCompletion(ctx, projectID, time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	// Cancellation does not decide the request's fate.
	req, ok := coordinator.Request(projectID)
	require.True(t, ok)
	assert.Equal(t, StatePending, req.State)
}

func TestRequestReturnsCopy(t *testing.T) {
	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-1", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-1").Return(nil)

	coordinator := NewCoordinator(contract, zap.NewNop())
	projectID := uuid.New()

	_, err := coordinator.Submit(context.Background(), projectID, testCoordinate(), testParams())
	require.NoError(t, err)

	snap, ok := coordinator.Request(projectID)
	require.True(t, ok)
	snap.State = "SCRIBBLED"
	snap.ID = "other"

	// Mutating the returned request must not touch the tracked one.
	again, ok := coordinator.Request(projectID)
	require.True(t, ok)
	assert.Equal(t, StatePending, again.State)
	assert.Equal(t, "req-1", again.ID)
}

func TestRequestSnapshotsDuringAwait(t *testing.T) {
	payload := EncodeResult(Result{NetCarbonBalance: 3, TotalProjectCarbon: 3000, Confidence: 0.9, Uncertainty: 10})

	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-1", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-1").Return(nil)
	contract.On("Response", mock.Anything, "req-1").Return(nil, nil, nil).Times(3)
	contract.On("Response", mock.Anything, "req-1").Return(payload, nil, nil)

	coordinator := NewCoordinator(contract, zap.NewNop(), WithPollInterval(2*time.Millisecond))
	projectID := uuid.New()

	// Status readers hammer the coordinator while a submit-and-wait cycle is
	// mutating the same request, mirroring a GET poll racing an awaited POST.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if req, ok := coordinator.Request(projectID); ok && req.State == StateFulfilled {
					// Result and state advance together.
					assert.NotNil(t, req.Result)
				}
			}
		}()
	}

	assessment, err := coordinator.SubmitAndAwait(context.Background(), projectID, testCoordinate(), testParams(), time.Second)
	close(stop)
	wg.Wait()
	require.NoError(t, err)
	assert.InDelta(t, 3000.0, assessment.TotalProjectCarbon, 1e-9)
}

func TestWaitForCompletionToleratesTransientErrors(t *testing.T) {
	payload := EncodeResult(Result{NetCarbonBalance: 2, TotalProjectCarbon: 2000, Confidence: 0.9, Uncertainty: 10})

	contract := new(MockContract)
	contract.On("SendRequest", mock.Anything, mock.Anything).Return("req-1", nil)
	contract.On("ConfirmSubmission", mock.Anything, "req-1").Return(nil)
	contract.On("Response", mock.Anything, "req-1").Return(nil, nil, errors.New("rpc: connection reset")).Once()
	contract.On("Response", mock.Anything, "req-1").Return(payload, nil, nil)

	coordinator := NewCoordinator(contract, zap.NewNop(), WithPollInterval(5*time.Millisecond))
	projectID := uuid.New()

	assessment, err := coordinator.SubmitAndAwait(context.Background(), projectID, testCoordinate(), testParams(), time.Second)
	require.NoError(t, err)
	assert.InDelta(t, 2000.0, assessment.TotalProjectCarbon, 1e-9)
}
