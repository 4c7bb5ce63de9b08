package carbon

import "math"

// Model constants. Fixed regression coefficients and conversion factors;
// the minimum uncertainty deduction follows the Verra methodology.
const (
	// NDVI-to-carbon regression: density = a · e^(b·ndvi)
	regressionBase     = 2.5
	regressionExponent = 3.2

	// CO2 molecular weight over carbon molecular weight.
	CarbonToCO2Ratio = 44.0 / 12.0

	// Minimum uncertainty deduction, as a fraction.
	minUncertainty = 0.10

	// Assumed confidence reported by the satellite APIs.
	apiConfidence = 0.85

	// Share of total stock attributed above vs below ground.
	biomassRatio = 0.76
	soilRatio    = 0.24
)

// CarbonDensityFromNDVI converts a vegetation index to carbon density
// (tC/ha) with the exponential regression model. Strictly increasing in
// NDVI; density at NDVI 0 equals the base coefficient.
func CarbonDensityFromNDVI(ndvi float64) float64 {
	return regressionBase * math.Exp(regressionExponent*ndvi)
}

// ConfidenceFactor scores data quality for a stock or offset assessment.
// Starts at 1.0, penalized by cloud cover, forest health, extreme
// temperature and soil moisture outside the optimal band, then clamped to
// [0.5, 1.0].
func ConfidenceFactor(in StockInput) float64 {
	confidence := 1.0

	switch {
	case in.Satellite.CloudCover > 50:
		confidence *= 0.8
	case in.Satellite.CloudCover > 20:
		confidence *= 0.9
	}

	confidence *= in.Satellite.ForestHealth

	if in.Weather.Temperature < -10 || in.Weather.Temperature > 40 {
		confidence *= 0.85
	}

	moisture := in.Soil.Moisture
	if moisture >= 0.6 && moisture <= 0.8 {
		confidence *= 1.05
	} else if moisture < 0.4 || moisture > 0.9 {
		confidence *= 0.9
	}

	return math.Max(0.5, math.Min(1.0, confidence))
}

// sensorReliability downgrades readings that are outside physical ranges,
// which usually indicates a sensor or ingestion defect. Floored at 0.5.
func sensorReliability(in StockInput) float64 {
	reliability := 1.0

	if in.Soil.Moisture < 0 || in.Soil.Moisture > 1 {
		reliability *= 0.7
	}
	if in.Weather.Temperature < -50 || in.Weather.Temperature > 60 {
		reliability *= 0.8
	}
	if in.NDVI < 0 || in.NDVI > 1 {
		reliability *= 0.6
	}

	return math.Max(0.5, reliability)
}

// Uncertainty estimates the automated uncertainty percentage:
// (1 − dataQuality·apiConfidence·sensorReliability) × 100, floored at the
// minimum deduction and capped at 100.
func Uncertainty(in StockInput) float64 {
	dataQualityScore := 1 - in.Satellite.CloudCover/100

	uncertainty := (1 - dataQualityScore*apiConfidence*sensorReliability(in)) * 100

	uncertainty = math.Max(uncertainty, minUncertainty*100)
	return math.Min(100, uncertainty)
}

// CalculateCarbonCredits runs the single-point stock assessment:
// stock = density(ndvi) × area × confidenceFactor, converted to tCO2.
func CalculateCarbonCredits(in StockInput) StockResult {
	carbonDensity := CarbonDensityFromNDVI(in.NDVI)
	confidenceFactor := ConfidenceFactor(in)
	uncertainty := Uncertainty(in)

	carbonStock := carbonDensity * in.ProjectArea * confidenceFactor
	co2Equivalent := carbonStock * CarbonToCO2Ratio

	return StockResult{
		CarbonStock:      math.Max(0, carbonStock),
		CO2Equivalent:    math.Max(0, co2Equivalent),
		Uncertainty:      uncertainty,
		ConfidenceFactor: confidenceFactor,
		Breakdown:        stockBreakdown(carbonStock),
	}
}

// stockBreakdown attributes the stock 76% to above-ground biomass, 24% to
// soil, remainder to environmental adjustment.
func stockBreakdown(totalCarbon float64) StockBreakdown {
	biomass := totalCarbon * biomassRatio
	soil := totalCarbon * soilRatio
	environmental := totalCarbon * (1 - biomassRatio - soilRatio)

	return StockBreakdown{
		Biomass:       math.Max(0, biomass),
		Soil:          math.Max(0, soil),
		Environmental: math.Max(0, environmental),
	}
}

// CalculateCarbonOffsetCredits runs the stock-change assessment over a date
// range. Both NDVI endpoints are required.
func CalculateCarbonOffsetCredits(in OffsetInput) (OffsetResult, error) {
	if in.NDVIStart == nil {
		return OffsetResult{}, &MissingInputError{Field: "ndvi_start"}
	}
	if in.NDVIEnd == nil {
		return OffsetResult{}, &MissingInputError{Field: "ndvi_end"}
	}

	ndviStart, ndviEnd := *in.NDVIStart, *in.NDVIEnd

	carbonDensityStart := CarbonDensityFromNDVI(ndviStart)
	carbonDensityEnd := CarbonDensityFromNDVI(ndviEnd)

	carbonStockStart := carbonDensityStart * in.ProjectArea
	carbonStockEnd := carbonDensityEnd * in.ProjectArea
	carbonStockChange := carbonStockEnd - carbonStockStart

	quality := StockInput{
		NDVI:        ndviEnd,
		ProjectArea: in.ProjectArea,
		Weather:     in.Weather,
		Satellite:   in.Satellite,
		Soil:        in.Soil,
	}
	confidenceFactor := ConfidenceFactor(quality)
	uncertainty := Uncertainty(quality)

	adjustedChange := carbonStockChange * confidenceFactor
	co2Equivalent := math.Max(0, adjustedChange) * CarbonToCO2Ratio

	return OffsetResult{
		CarbonStockStart:  math.Max(0, carbonStockStart),
		CarbonStockEnd:    math.Max(0, carbonStockEnd),
		CarbonStockChange: carbonStockChange,
		CO2Equivalent:     co2Equivalent,
		Uncertainty:       uncertainty,
		ConfidenceFactor:  confidenceFactor,
		Breakdown: OffsetBreakdown{
			CarbonDensityStart: carbonDensityStart,
			CarbonDensityEnd:   carbonDensityEnd,
			NDVIStart:          ndviStart,
			NDVIEnd:            ndviEnd,
			NDVIChange:         ndviEnd - ndviStart,
			ProjectArea:        in.ProjectArea,
			CarbonToCO2Ratio:   CarbonToCO2Ratio,
		},
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
	}, nil
}
