package carbon

import (
	"math"
	"time"

	"carbonlink/carbonlink-backend/internal/environment"
)

// Balance-mode constants, tCO2e/ha/yr unless noted.
const (
	biomassToCarbon = 0.47 // fraction of biomass that is carbon
	carbonToCO2e    = 3.67 // tC to tCO2e

	baseSoilSequestration = 0.5 // tC/ha/yr

	temperatureOptimum = 25.0   // °C
	rainfallOptimum    = 1500.0 // mm/yr
	phOptimum          = 6.5
)

// baseGrowthRate returns the biomass growth rate in t/ha/yr for the
// project type.
func baseGrowthRate(projectType ProjectType) float64 {
	switch projectType {
	case ProjectReforestation:
		return 8.5
	case ProjectAfforestation:
		return 12.0
	case ProjectConservation:
		return 6.0
	case ProjectAgroforestry:
		return 4.5
	default:
		return 8.0
	}
}

// baselineRate returns the baseline emission rate for the scenario.
func baselineRate(scenario BaselineScenario) float64 {
	switch scenario {
	case BaselineBusinessAsUsual:
		return 2.0
	case BaselineDeforestation:
		return 15.0
	case BaselineDegradation:
		return 8.0
	default:
		return 5.0
	}
}

// projectRate returns the project activity emission rate for the type.
func projectRate(projectType ProjectType) float64 {
	switch projectType {
	case ProjectReforestation:
		return 1.5
	case ProjectAfforestation:
		return 2.0
	case ProjectConservation:
		return 0.5
	case ProjectAgroforestry:
		return 3.0
	default:
		return 1.0
	}
}

// BiomassGrowth estimates carbon sequestration from biomass growth. The
// base rate for the project type is scaled by six multiplicative
// environmental factors and converted to tCO2e/ha/yr.
func BiomassGrowth(sat environment.SatelliteObservation, weather environment.WeatherObservation, soil environment.SoilObservation, projectType ProjectType) float64 {
	ndviFactor := clamp(sat.NDVI/0.5, 0.1, 2.0)
	eviFactor := clamp(sat.EVI/0.3, 0.1, 2.0)
	tempFactor := temperatureFactor(weather.Temperature)
	rainfallFactor := rainfallFactor(weather.Rainfall)
	moistureFactor := clamp(soil.Moisture/40, 0.1, 1.5)
	fertilityFactor := soilFertilityFactor(soil)

	adjustedGrowth := baseGrowthRate(projectType) *
		ndviFactor * eviFactor * tempFactor * rainfallFactor * moistureFactor * fertilityFactor

	return adjustedGrowth * biomassToCarbon * carbonToCO2e
}

// SoilCarbonSequestration estimates below-ground sequestration in
// tCO2e/ha/yr from soil condition.
func SoilCarbonSequestration(soil environment.SoilObservation) float64 {
	organicMatterFactor := clamp(soil.OrganicMatter/3, 0.5, 2.0)
	phFactor := phFactor(soil.PH)
	tempFactor := soilTemperatureFactor(soil.Temperature)
	moistureFactor := clamp(soil.Moisture/40, 0.1, 1.5)

	adjusted := baseSoilSequestration * organicMatterFactor * phFactor * tempFactor * moistureFactor

	return adjusted * carbonToCO2e
}

// BaselineEmissions estimates what would be emitted without the project,
// scaled by fire risk and standing biomass.
func BaselineEmissions(scenario BaselineScenario, sat environment.SatelliteObservation, fire environment.FireObservation) float64 {
	fireRiskFactor := 1 + fire.FireRisk*2
	biomassFactor := clamp(sat.Biomass/10000, 0.5, 2.0)

	return baselineRate(scenario) * fireRiskFactor * biomassFactor
}

// ProjectEmissions estimates emissions from project activity, inflated in
// extreme weather.
func ProjectEmissions(projectType ProjectType, weather environment.WeatherObservation) float64 {
	return projectRate(projectType) * weatherEmissionFactor(weather)
}

// LeakageRate returns the fraction of avoided baseline emissions displaced
// elsewhere. Conservation projects leak more; a deforestation baseline
// amplifies the rate.
func LeakageRate(projectType ProjectType, scenario BaselineScenario) float64 {
	rate := 0.1
	if projectType == ProjectConservation {
		rate = 0.3
	}
	if scenario == BaselineDeforestation {
		rate *= 1.5
	}
	return rate
}

// Confidence scores the balance-mode input quality: base 0.7, plus 0.1 per
// valid weather/satellite/soil domain and 0.05 for fire data, capped at 0.95.
func Confidence(obs environment.ObservationSet) float64 {
	confidence := 0.7

	if obs.Weather.Temperature > 0 && obs.Weather.Humidity > 0 {
		confidence += 0.1
	}
	if obs.Satellite.NDVI > 0 && obs.Satellite.EVI > 0 {
		confidence += 0.1
	}
	if obs.Soil.Moisture > 0 && obs.Soil.PH > 0 {
		confidence += 0.1
	}
	if obs.Fire.FireRisk >= 0 {
		confidence += 0.05
	}

	return math.Min(0.95, confidence)
}

// CalculateCarbonOffset runs the full sequestration-minus-emissions
// accounting for a project. Inputs are taken as given; callers validate
// beforehand or accept best-effort clamped output.
func CalculateCarbonOffset(in BalanceInput) *CarbonAssessment {
	obs := in.Observations

	biomassGrowth := BiomassGrowth(obs.Satellite, obs.Weather, obs.Soil, in.Params.ProjectType)
	soilCarbon := SoilCarbonSequestration(obs.Soil)
	totalSequestration := biomassGrowth + soilCarbon

	baselineEmissions := BaselineEmissions(in.Params.BaselineScenario, obs.Satellite, obs.Fire)
	projectEmissions := ProjectEmissions(in.Params.ProjectType, obs.Weather)
	leakage := LeakageRate(in.Params.ProjectType, in.Params.BaselineScenario) * baselineEmissions
	totalEmissions := baselineEmissions + projectEmissions + leakage

	netCarbonBalance := totalSequestration - totalEmissions
	totalProjectCarbon := netCarbonBalance * in.Params.AreaHectares * in.Params.DurationYears

	confidence := Confidence(obs)

	return &CarbonAssessment{
		Sequestration: Sequestration{
			BiomassGrowth: biomassGrowth,
			SoilCarbon:    soilCarbon,
			Total:         totalSequestration,
		},
		Emissions: Emissions{
			Baseline: baselineEmissions,
			Project:  projectEmissions,
			Leakage:  leakage,
			Total:    totalEmissions,
		},
		NetCarbonBalance:   netCarbonBalance,
		TotalProjectCarbon: totalProjectCarbon,
		Confidence:         confidence,
		Uncertainty:        (1 - confidence) * 100,
		Timestamp:          time.Now().UTC(),
	}
}

// Environmental factor helpers.

func temperatureFactor(temperature float64) float64 {
	return math.Max(0.1, 1-math.Abs(temperature-temperatureOptimum)/20)
}

func rainfallFactor(rainfall float64) float64 {
	return math.Max(0.1, 1-math.Abs(rainfall-rainfallOptimum)/2000)
}

func soilFertilityFactor(soil environment.SoilObservation) float64 {
	nitrogenFactor := math.Min(1.5, soil.Nitrogen/100)
	phosphorusFactor := math.Min(1.5, soil.Phosphorus/20)
	potassiumFactor := math.Min(1.5, soil.Potassium/150)

	return (nitrogenFactor + phosphorusFactor + potassiumFactor) / 3
}

func phFactor(ph float64) float64 {
	return math.Max(0.1, 1-math.Abs(ph-phOptimum)/3)
}

func soilTemperatureFactor(temperature float64) float64 {
	// Lower soil temperature slows decomposition.
	return clamp(temperature/20, 0.1, 1.5)
}

func weatherEmissionFactor(weather environment.WeatherObservation) float64 {
	factor := 1.0
	if weather.Temperature > 30 {
		factor += 0.2
	}
	if weather.WindSpeed > 8 {
		factor += 0.1
	}
	return factor
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
