package oracle

import (
	"fmt"
	"math"
	"math/big"
)

// Fulfillment payloads carry fixed-point values in uint256-style 32-byte
// big-endian words, three decimal places of precision, matching what the
// oracle source script returns on chain.

const (
	// FixedPointScale is the fixed-point denominator (3 decimals).
	FixedPointScale = 1000

	wordSize    = 32
	resultWords = 4

	// Encoded result word order.
	idxNetCarbonBalance = 0
	idxTotalCarbon      = 1
	idxConfidence       = 2
	idxUncertainty      = 3
)

// Result is the decoded on-chain fulfillment of a computation request.
type Result struct {
	NetCarbonBalance   float64 `json:"net_carbon_balance"`
	TotalProjectCarbon float64 `json:"total_project_carbon"`
	Confidence         float64 `json:"confidence"`
	Uncertainty        float64 `json:"uncertainty"`
}

// EncodeResult packs a result into four fixed-point words. Net balance may
// be negative, so every word is two's complement.
func EncodeResult(r Result) []byte {
	buf := make([]byte, resultWords*wordSize)
	putWord(buf, idxNetCarbonBalance, r.NetCarbonBalance)
	putWord(buf, idxTotalCarbon, r.TotalProjectCarbon)
	putWord(buf, idxConfidence, r.Confidence)
	putWord(buf, idxUncertainty, r.Uncertainty)
	return buf
}

// DecodeResult unpacks a fulfillment payload.
func DecodeResult(data []byte) (Result, error) {
	if len(data) != resultWords*wordSize {
		return Result{}, fmt.Errorf("oracle: result payload is %d bytes, want %d", len(data), resultWords*wordSize)
	}
	var r Result
	for _, field := range []struct {
		index int
		dst   *float64
	}{
		{idxNetCarbonBalance, &r.NetCarbonBalance},
		{idxTotalCarbon, &r.TotalProjectCarbon},
		{idxConfidence, &r.Confidence},
		{idxUncertainty, &r.Uncertainty},
	} {
		value, err := getWord(data, field.index)
		if err != nil {
			return Result{}, err
		}
		*field.dst = value
	}
	return r, nil
}

// putWord writes value × scale as a two's complement 32-byte word.
func putWord(buf []byte, index int, value float64) {
	scaled := big.NewInt(int64(math.Round(value * FixedPointScale)))
	if scaled.Sign() < 0 {
		// Two's complement within 256 bits.
		scaled.Add(scaled, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	scaled.FillBytes(buf[index*wordSize : (index+1)*wordSize])
}

// getWord reads a two's complement 32-byte word back into a float.
func getWord(data []byte, index int) (float64, error) {
	word := new(big.Int).SetBytes(data[index*wordSize : (index+1)*wordSize])
	// Values with the top bit set are negative.
	if word.Bit(255) == 1 {
		word.Sub(word, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	if !word.IsInt64() {
		return 0, fmt.Errorf("oracle: result word %d overflows int64: %s", index, word)
	}
	return float64(word.Int64()) / FixedPointScale, nil
}
