// Package credits applies the mint threshold and buffer-pool split policy
// to a carbon assessment.
package credits

import "math"

// DefaultMintThreshold is the carbon tonnage a project must reach before
// tokens can be minted.
const DefaultMintThreshold = 1000.0

// bufferFraction is the non-permanence buffer held back against reversal
// risk such as wildfire. 15% is the canonical split.
const bufferFraction = 0.15

// Issuance is the tradable/reserved split derived from an assessment.
type Issuance struct {
	TotalCarbon    float64 `json:"total_carbon"`
	TradableAmount float64 `json:"tradable_amount"`
	ReservedAmount float64 `json:"reserved_amount"`
	Progress       float64 `json:"progress"` // [0, 100] toward the threshold
	MintEligible   bool    `json:"mint_eligible"`
	Threshold      float64 `json:"threshold"`
}

// Evaluate derives the credit issuance for the current carbon tonnage.
// Pure function of its inputs; re-evaluating with an updated tonnage is
// idempotent.
func Evaluate(currentCarbon, threshold float64) Issuance {
	if threshold <= 0 {
		threshold = DefaultMintThreshold
	}

	return Issuance{
		TotalCarbon:    currentCarbon,
		TradableAmount: math.Max(0, math.Floor(currentCarbon*(1-bufferFraction))),
		ReservedAmount: math.Max(0, math.Floor(currentCarbon*bufferFraction)),
		Progress:       Progress(currentCarbon, threshold),
		MintEligible:   currentCarbon >= threshold,
		Threshold:      threshold,
	}
}

// Progress reports how far the current tonnage is toward the threshold,
// clamped to [0, 100].
func Progress(currentCarbon, threshold float64) float64 {
	if threshold <= 0 {
		threshold = DefaultMintThreshold
	}
	return math.Min(100, math.Max(0, 100*currentCarbon/threshold))
}
