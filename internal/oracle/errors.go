package oracle

import (
	"errors"
	"fmt"
	"time"
)

// ErrRequestInFlight rejects a second submission while a project already
// has a request in a non-terminal state.
var ErrRequestInFlight = errors.New("oracle: project already has an outstanding request")

// ErrNoRequest means the project has no request to poll.
var ErrNoRequest = errors.New("oracle: no request for project")

// TimeoutError reports a request that saw no fulfillment within the wait
// window. The request is left in the timed-out state; a new assessment
// needs a fresh submission.
type TimeoutError struct {
	RequestID string
	Waited    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("oracle: request %s not fulfilled within %s", e.RequestID, e.Waited)
}

// RejectionError reports an on-chain submission revert or a fulfillment
// that carried an error payload.
type RejectionError struct {
	RequestID string
	Stage     string // "submit", "confirm" or "fulfill"
	Reason    string
	Err       error
}

func (e *RejectionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("oracle: request %s rejected at %s: %s", e.RequestID, e.Stage, e.Reason)
	}
	return fmt.Sprintf("oracle: request %s rejected at %s: %v", e.RequestID, e.Stage, e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }
