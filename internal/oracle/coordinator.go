package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"carbonlink/carbonlink-backend/internal/carbon"
	"carbonlink/carbonlink-backend/internal/environment"
	"carbonlink/carbonlink-backend/pkg/workflows"
)

// Request lifecycle states.
const (
	StateIdle      = "IDLE"
	StateSubmitted = "SUBMITTED"
	StatePending   = "PENDING"
	StateFulfilled = "FULFILLED"
	StateFailed    = "FAILED"
	StateTimedOut  = "TIMED_OUT"
)

// requestTransitions is the allowed lifecycle. Terminal states have no
// outgoing transitions; a new assessment requires a fresh submission.
func requestTransitions() map[string][]string {
	return map[string][]string{
		StateIdle:      {StateSubmitted, StateFailed},
		StateSubmitted: {StatePending, StateFailed},
		StatePending:   {StateFulfilled, StateFailed, StateTimedOut},
		StateFulfilled: {},
		StateFailed:    {},
		StateTimedOut:  {},
	}
}

// Request tracks one oracle computation request for a project.
type Request struct {
	ID          string                   `json:"id"`
	ProjectID   uuid.UUID                `json:"project_id"`
	SubmittedAt time.Time                `json:"submitted_at"`
	State       string                   `json:"state"`
	Result      *carbon.CarbonAssessment `json:"result,omitempty"`
	Err         error                    `json:"-"`
}

const (
	// DefaultPollInterval is how often a waiting caller polls for a result.
	DefaultPollInterval = 10 * time.Second

	// DefaultMaxWait bounds how long a caller waits before the request is
	// marked timed out.
	DefaultMaxWait = 5 * time.Minute
)

var requestOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "carbonlink",
	Subsystem: "oracle",
	Name:      "request_outcomes_total",
	Help:      "Oracle request terminal outcomes.",
}, []string{"outcome"})

// Coordinator manages the submit → poll → fulfill/timeout lifecycle that
// bridges an off-chain carbon assessment into an on-chain credit issuance
// event. It enforces one outstanding request per project.
type Coordinator struct {
	contract     ProjectContract
	machine      *workflows.StateMachine
	logger       *zap.Logger
	pollInterval time.Duration

	mu       sync.Mutex
	requests map[uuid.UUID]*Request
}

// CoordinatorOption customizes the coordinator.
type CoordinatorOption func(*Coordinator)

// WithPollInterval overrides the poll cadence, for tests.
func WithPollInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.pollInterval = d }
}

// NewCoordinator creates an oracle request coordinator.
func NewCoordinator(contract ProjectContract, logger *zap.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		contract:     contract,
		machine:      workflows.NewStateMachine(requestTransitions()),
		logger:       logger,
		pollInterval: DefaultPollInterval,
		requests:     make(map[uuid.UUID]*Request),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit encodes the request arguments, issues the on-chain submission and
// waits for transaction confirmation. A project with a request already in
// flight is rejected with ErrRequestInFlight.
func (c *Coordinator) Submit(ctx context.Context, projectID uuid.UUID, coord environment.Coordinate, params carbon.ProjectParameters) (*Request, error) {
	c.mu.Lock()
	if existing, ok := c.requests[projectID]; ok && !c.machine.IsTerminal(existing.State) {
		c.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	req := &Request{
		ProjectID:   projectID,
		SubmittedAt: time.Now().UTC(),
		State:       StateIdle,
	}
	c.requests[projectID] = req
	c.mu.Unlock()

	encodedArgs, err := EncodeRequestArgs(coord, params)
	if err != nil {
		c.fail(req, &RejectionError{Stage: "submit", Err: err})
		snap := c.snapshot(req)
		return snap, snap.Err
	}

	requestID, err := c.contract.SendRequest(ctx, encodedArgs)
	if err != nil {
		c.fail(req, &RejectionError{Stage: "submit", Err: err})
		snap := c.snapshot(req)
		return snap, snap.Err
	}
	c.mu.Lock()
	req.ID = requestID
	c.transitionLocked(req, StateSubmitted)
	c.mu.Unlock()
	c.logger.Info("oracle request submitted",
		zap.String("request_id", requestID),
		zap.String("project_id", projectID.String()))

	if err := c.contract.ConfirmSubmission(ctx, requestID); err != nil {
		c.fail(req, &RejectionError{RequestID: requestID, Stage: "confirm", Err: err})
		snap := c.snapshot(req)
		return snap, snap.Err
	}
	c.transition(req, StatePending)

	return c.snapshot(req), nil
}

// Poll checks whether the project's request has a recorded fulfillment.
// A fulfilled payload is decoded into a carbon assessment; an error payload
// fails the request; otherwise the request stays pending. Transport errors
// leave the state untouched and are returned to the caller.
func (c *Coordinator) Poll(ctx context.Context, projectID uuid.UUID) (*Request, error) {
	c.mu.Lock()
	req, ok := c.requests[projectID]
	if !ok {
		c.mu.Unlock()
		return nil, ErrNoRequest
	}
	if c.machine.IsTerminal(req.State) {
		snap := *req
		c.mu.Unlock()
		return &snap, snap.Err
	}
	requestID := req.ID
	c.mu.Unlock()

	payload, errPayload, err := c.contract.Response(ctx, requestID)
	if err != nil {
		return c.snapshot(req), err
	}

	if len(errPayload) > 0 {
		c.fail(req, &RejectionError{RequestID: requestID, Stage: "fulfill", Reason: string(errPayload)})
		snap := c.snapshot(req)
		return snap, snap.Err
	}
	if payload == nil {
		return c.snapshot(req), nil // still pending
	}

	result, err := DecodeResult(payload)
	if err != nil {
		c.fail(req, &RejectionError{RequestID: requestID, Stage: "fulfill", Err: err})
		snap := c.snapshot(req)
		return snap, snap.Err
	}

	c.mu.Lock()
	req.Result = &carbon.CarbonAssessment{
		NetCarbonBalance:   result.NetCarbonBalance,
		TotalProjectCarbon: result.TotalProjectCarbon,
		Confidence:         result.Confidence,
		Uncertainty:        result.Uncertainty,
		Timestamp:          time.Now().UTC(),
	}
	c.transitionLocked(req, StateFulfilled)
	c.mu.Unlock()
	requestOutcomes.WithLabelValues("fulfilled").Inc()
	c.logger.Info("oracle request fulfilled", zap.String("request_id", requestID))

	return c.snapshot(req), nil
}

// WaitForCompletion polls at a fixed interval until the request reaches a
// terminal state or maxWait elapses, at which point the request is marked
// timed out and a TimeoutError is returned. Cancelling the context stops
// the wait without deciding the request's fate.
func (c *Coordinator) WaitForCompletion(ctx context.Context, projectID uuid.UUID, maxWait time.Duration) (*carbon.CarbonAssessment, error) {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	c.mu.Lock()
	req, ok := c.requests[projectID]
	if !ok {
		c.mu.Unlock()
		return nil, ErrNoRequest
	}
	requestID := req.ID
	c.mu.Unlock()

	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-deadline.C:
			waitErr := &TimeoutError{RequestID: requestID, Waited: maxWait}
			c.mu.Lock()
			if c.transitionLocked(req, StateTimedOut) {
				req.Err = waitErr
			}
			c.mu.Unlock()
			requestOutcomes.WithLabelValues("timed_out").Inc()
			c.logger.Warn("oracle request timed out",
				zap.String("request_id", requestID), zap.Duration("waited", maxWait))
			return nil, waitErr

		case <-ticker.C:
			polled, err := c.Poll(ctx, projectID)
			if polled == nil {
				return nil, err
			}
			if err != nil && !c.machine.IsTerminal(polled.State) {
				// Transient poll failure; keep waiting.
				c.logger.Debug("oracle poll failed, retrying", zap.Error(err))
				continue
			}
			switch polled.State {
			case StateFulfilled:
				return polled.Result, nil
			case StateFailed:
				return nil, polled.Err
			}
		}
	}
}

// SubmitAndAwait runs the full submit → wait cycle and returns the carbon
// assessment the oracle network computed.
func (c *Coordinator) SubmitAndAwait(ctx context.Context, projectID uuid.UUID, coord environment.Coordinate, params carbon.ProjectParameters, maxWait time.Duration) (*carbon.CarbonAssessment, error) {
	if _, err := c.Submit(ctx, projectID, coord, params); err != nil {
		return nil, err
	}
	return c.WaitForCompletion(ctx, projectID, maxWait)
}

// Request returns a copy of the project's current request, if any. The copy
// is the caller's to keep; the tracked request may advance after it is taken.
func (c *Coordinator) Request(projectID uuid.UUID) (*Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.requests[projectID]
	if !ok {
		return nil, false
	}
	snap := *req
	return &snap, true
}

// snapshot copies the request under the coordinator lock so callers never
// observe a field mid-write.
func (c *Coordinator) snapshot(req *Request) *Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := *req
	return &snap
}

func (c *Coordinator) transition(req *Request, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitionLocked(req, to)
}

// transitionLocked applies a state change. Callers must hold c.mu.
func (c *Coordinator) transitionLocked(req *Request, to string) bool {
	if !c.machine.CanTransition(req.State, to) {
		c.logger.Error("illegal oracle request transition",
			zap.String("from", req.State), zap.String("to", to))
		return false
	}
	req.State = to
	return true
}

func (c *Coordinator) fail(req *Request, err error) {
	c.mu.Lock()
	c.transitionLocked(req, StateFailed)
	req.Err = err
	requestID := req.ID
	c.mu.Unlock()
	requestOutcomes.WithLabelValues("failed").Inc()
	c.logger.Error("oracle request failed", zap.String("request_id", requestID), zap.Error(err))
}
