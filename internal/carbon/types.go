package carbon

import (
	"time"

	"carbonlink/carbonlink-backend/internal/environment"
)

// ProjectType classifies the forestry activity.
type ProjectType string

const (
	ProjectReforestation ProjectType = "reforestation"
	ProjectAfforestation ProjectType = "afforestation"
	ProjectConservation  ProjectType = "forest-conservation"
	ProjectAgroforestry  ProjectType = "agroforestry"
)

// BaselineScenario describes what would happen without the project.
type BaselineScenario string

const (
	BaselineBusinessAsUsual BaselineScenario = "business-as-usual"
	BaselineDeforestation   BaselineScenario = "deforestation"
	BaselineDegradation     BaselineScenario = "degradation"
)

// ProjectParameters is the project metadata every computation mode needs.
type ProjectParameters struct {
	AreaHectares     float64          `json:"area_hectares"`  // > 0
	DurationYears    float64          `json:"duration_years"` // > 0
	ProjectType      ProjectType      `json:"project_type"`
	BaselineScenario BaselineScenario `json:"baseline_scenario"`
}

// StockInput drives a single-point carbon stock assessment.
type StockInput struct {
	NDVI        float64                          `json:"ndvi"`
	ProjectArea float64                          `json:"project_area"` // hectares
	Weather     environment.WeatherObservation   `json:"weather"`
	Satellite   environment.SatelliteObservation `json:"satellite"`
	Soil        environment.SoilObservation      `json:"soil"`
}

// OffsetInput drives a stock-change assessment over a date range. Both NDVI
// endpoints are required.
type OffsetInput struct {
	NDVIStart   *float64                         `json:"ndvi_start"`
	NDVIEnd     *float64                         `json:"ndvi_end"`
	ProjectArea float64                          `json:"project_area"`
	Weather     environment.WeatherObservation   `json:"weather"`
	Satellite   environment.SatelliteObservation `json:"satellite"`
	Soil        environment.SoilObservation      `json:"soil"`
	StartDate   time.Time                        `json:"start_date"`
	EndDate     time.Time                        `json:"end_date"`
}

// BalanceInput drives the full sequestration-minus-emissions accounting.
type BalanceInput struct {
	Observations environment.ObservationSet `json:"observations"`
	Params       ProjectParameters          `json:"params"`
}

// StockBreakdown attributes a carbon stock to its components.
type StockBreakdown struct {
	Biomass       float64 `json:"biomass"`
	Soil          float64 `json:"soil"`
	Environmental float64 `json:"environmental"`
}

// StockResult is a single-point assessment.
type StockResult struct {
	CarbonStock      float64        `json:"carbon_stock"`   // tC
	CO2Equivalent    float64        `json:"co2_equivalent"` // tCO2
	Uncertainty      float64        `json:"uncertainty"`    // %
	ConfidenceFactor float64        `json:"confidence_factor"`
	Breakdown        StockBreakdown `json:"breakdown"`
}

// OffsetBreakdown records every intermediate of a stock-change assessment.
type OffsetBreakdown struct {
	CarbonDensityStart float64 `json:"carbon_density_start"`
	CarbonDensityEnd   float64 `json:"carbon_density_end"`
	NDVIStart          float64 `json:"ndvi_start"`
	NDVIEnd            float64 `json:"ndvi_end"`
	NDVIChange         float64 `json:"ndvi_change"`
	ProjectArea        float64 `json:"project_area"`
	CarbonToCO2Ratio   float64 `json:"carbon_to_co2_ratio"`
}

// OffsetResult is a stock-change assessment over a date range.
type OffsetResult struct {
	CarbonStockStart  float64         `json:"carbon_stock_start"`
	CarbonStockEnd    float64         `json:"carbon_stock_end"`
	CarbonStockChange float64         `json:"carbon_stock_change"`
	CO2Equivalent     float64         `json:"co2_equivalent"`
	Uncertainty       float64         `json:"uncertainty"`
	ConfidenceFactor  float64         `json:"confidence_factor"`
	Breakdown         OffsetBreakdown `json:"breakdown"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
}

// Sequestration groups the carbon removal components, tCO2e/ha/yr.
type Sequestration struct {
	BiomassGrowth float64 `json:"biomass_growth"`
	SoilCarbon    float64 `json:"soil_carbon"`
	Total         float64 `json:"total"`
}

// Emissions groups the emission components, tCO2e/ha/yr.
type Emissions struct {
	Baseline float64 `json:"baseline"`
	Project  float64 `json:"project"`
	Leakage  float64 `json:"leakage"`
	Total    float64 `json:"total"`
}

// CarbonAssessment is the full balance-mode result. It is created per
// computation and never mutated; a new assessment supersedes the old one.
type CarbonAssessment struct {
	Sequestration      Sequestration `json:"sequestration"`
	Emissions          Emissions     `json:"emissions"`
	NetCarbonBalance   float64       `json:"net_carbon_balance"`   // tCO2e/ha/yr
	TotalProjectCarbon float64       `json:"total_project_carbon"` // tCO2e
	Confidence         float64       `json:"confidence"`           // [0, 1]
	Uncertainty        float64       `json:"uncertainty"`          // %
	Timestamp          time.Time     `json:"timestamp"`
}
