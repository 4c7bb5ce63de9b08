package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"carbonlink/carbonlink-backend/internal/carbon"
	"carbonlink/carbonlink-backend/internal/environment"
)

// ProjectContract is the narrow interface to the on-chain project contract.
// SendRequest issues the carbon data request transaction and returns the
// request id emitted by the request-submitted event. The oracle network
// later fulfills the request; Response exposes whatever has been recorded.
type ProjectContract interface {
	// SendRequest submits the encoded computation request on chain.
	SendRequest(ctx context.Context, encodedArgs []byte) (requestID string, err error)

	// ConfirmSubmission blocks until the submission transaction is
	// confirmed (or the context is cancelled).
	ConfirmSubmission(ctx context.Context, requestID string) error

	// Response returns the recorded fulfillment for a request. A nil
	// payload with nil errPayload means the request is still pending.
	Response(ctx context.Context, requestID string) (payload []byte, errPayload []byte, err error)
}

// ProjectFactory is the narrow interface to the on-chain factory/manager.
type ProjectFactory interface {
	// CreateProject deploys a project contract and returns its address.
	CreateProject(ctx context.Context, landDetails string) (address string, err error)
}

// CreditLedger reads issued/buffer/total credit state from chain.
type CreditLedger interface {
	CarbonBalance(ctx context.Context, projectAddress string) (float64, error)
}

// RequestArgs is the off-chain computation request payload: the coordinate
// and project metadata the oracle source script needs, all stringly typed
// the way the on-chain request encodes them.
type RequestArgs struct {
	Latitude         string `json:"latitude"`
	Longitude        string `json:"longitude"`
	Elevation        string `json:"elevation"`
	ProjectArea      string `json:"project_area"`
	ProjectDuration  string `json:"project_duration"`
	BaselineScenario string `json:"baseline_scenario"`
	ProjectType      string `json:"project_type"`
}

// EncodeRequestArgs builds the encoded request arguments for a submission.
func EncodeRequestArgs(coord environment.Coordinate, params carbon.ProjectParameters) ([]byte, error) {
	args := RequestArgs{
		Latitude:         fmt.Sprintf("%f", coord.Latitude),
		Longitude:        fmt.Sprintf("%f", coord.Longitude),
		Elevation:        fmt.Sprintf("%f", coord.Elevation),
		ProjectArea:      fmt.Sprintf("%f", params.AreaHectares),
		ProjectDuration:  fmt.Sprintf("%f", params.DurationYears),
		BaselineScenario: string(params.BaselineScenario),
		ProjectType:      string(params.ProjectType),
	}
	return json.Marshal(args)
}

// DecodeRequestArgs parses an encoded submission payload.
func DecodeRequestArgs(data []byte) (RequestArgs, error) {
	var args RequestArgs
	if err := json.Unmarshal(data, &args); err != nil {
		return RequestArgs{}, fmt.Errorf("oracle: decode request args: %w", err)
	}
	return args, nil
}
