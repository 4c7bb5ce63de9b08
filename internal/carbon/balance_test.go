package carbon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonlink/carbonlink-backend/internal/environment"
)

func healthyObservations() environment.ObservationSet {
	return environment.ObservationSet{
		Weather: environment.WeatherObservation{
			Temperature: 25,
			Humidity:    75,
			Rainfall:    30,
			WindSpeed:   4,
		},
		Satellite: environment.SatelliteObservation{
			NDVI:         0.6,
			EVI:          0.35,
			LAI:          2.5,
			Biomass:      12000,
			CloudCover:   10,
			ForestHealth: 0.9,
		},
		Soil: environment.SoilObservation{
			Moisture:      0.45,
			Temperature:   20,
			PH:            6.5,
			OrganicMatter: 4,
			Nitrogen:      90,
			Phosphorus:    25,
			Potassium:     160,
		},
		Fire: environment.FireObservation{
			FireRisk:    0.1,
			ActiveFires: 0,
		},
	}
}

func TestCalculateCarbonOffsetAccounting(t *testing.T) {
	in := BalanceInput{
		Observations: healthyObservations(),
		Params: ProjectParameters{
			AreaHectares:     100,
			DurationYears:    10,
			ProjectType:      ProjectReforestation,
			BaselineScenario: BaselineBusinessAsUsual,
		},
	}

	assessment := CalculateCarbonOffset(in)
	require.NotNil(t, assessment)

	// Components always reconcile with their totals.
	assert.InDelta(t, assessment.Sequestration.BiomassGrowth+assessment.Sequestration.SoilCarbon,
		assessment.Sequestration.Total, 1e-9)
	assert.InDelta(t, assessment.Emissions.Baseline+assessment.Emissions.Project+assessment.Emissions.Leakage,
		assessment.Emissions.Total, 1e-9)
	assert.InDelta(t, assessment.Sequestration.Total-assessment.Emissions.Total,
		assessment.NetCarbonBalance, 1e-9)
	assert.InDelta(t, assessment.NetCarbonBalance*100*10,
		assessment.TotalProjectCarbon, 1e-6)

	// Full observation coverage reaches the confidence cap.
	assert.Equal(t, 0.95, assessment.Confidence)
	assert.InDelta(t, 5.0, assessment.Uncertainty, 1e-9)
	assert.False(t, assessment.Timestamp.IsZero())
}

func TestBiomassGrowthRespondsToVegetation(t *testing.T) {
	obs := healthyObservations()

	healthy := BiomassGrowth(obs.Satellite, obs.Weather, obs.Soil, ProjectReforestation)

	sparse := obs.Satellite
	sparse.NDVI = 0.1
	sparse.EVI = 0.05
	degraded := BiomassGrowth(sparse, obs.Weather, obs.Soil, ProjectReforestation)

	assert.Greater(t, healthy, degraded)
	assert.Positive(t, degraded)
}

func TestBaselineEmissionsScaleWithFireRisk(t *testing.T) {
	obs := healthyObservations()

	calm := BaselineEmissions(BaselineDeforestation, obs.Satellite, environment.FireObservation{FireRisk: 0})
	risky := BaselineEmissions(BaselineDeforestation, obs.Satellite, environment.FireObservation{FireRisk: 0.5})

	// FireRisk 0.5 doubles the emission rate.
	assert.InDelta(t, calm*2, risky, 1e-9)

	// Deforestation baseline emits more than business as usual.
	bau := BaselineEmissions(BaselineBusinessAsUsual, obs.Satellite, obs.Fire)
	defo := BaselineEmissions(BaselineDeforestation, obs.Satellite, obs.Fire)
	assert.Greater(t, defo, bau)
}

func TestLeakageRate(t *testing.T) {
	assert.Equal(t, 0.1, LeakageRate(ProjectReforestation, BaselineBusinessAsUsual))
	assert.Equal(t, 0.3, LeakageRate(ProjectConservation, BaselineBusinessAsUsual))
	assert.InDelta(t, 0.45, LeakageRate(ProjectConservation, BaselineDeforestation), 1e-9)
	assert.InDelta(t, 0.15, LeakageRate(ProjectReforestation, BaselineDeforestation), 1e-9)
}

func TestConfidenceCapAndPartialData(t *testing.T) {
	full := Confidence(healthyObservations())
	assert.Equal(t, 0.95, full)

	partial := healthyObservations()
	partial.Soil = environment.SoilObservation{}
	partial.Satellite = environment.SatelliteObservation{}
	assert.InDelta(t, 0.85, Confidence(partial), 1e-9)
}

func TestProjectEmissionsExtremeWeather(t *testing.T) {
	mild := environment.WeatherObservation{Temperature: 25, WindSpeed: 3}
	harsh := environment.WeatherObservation{Temperature: 35, WindSpeed: 9}

	assert.InDelta(t, 1.5, ProjectEmissions(ProjectReforestation, mild), 1e-9)
	assert.InDelta(t, 1.5*1.3, ProjectEmissions(ProjectReforestation, harsh), 1e-9)
}

func TestPerformanceBenchmark(t *testing.T) {
	assert.InDelta(t, 2.0, PerformanceBenchmark(0.6, 0.55, 0.5, 0.5), 1e-9)

	// Flat control area returns the neutral ratio.
	assert.Equal(t, 1.0, PerformanceBenchmark(0.6, 0.5, 0.5, 0.5))
}

func TestValidateProjectParameters(t *testing.T) {
	valid := ProjectParameters{
		AreaHectares:     100,
		DurationYears:    10,
		ProjectType:      ProjectAgroforestry,
		BaselineScenario: BaselineDegradation,
	}
	assert.Nil(t, ValidateProjectParameters(valid))

	invalid := ProjectParameters{ProjectType: "mangrove", BaselineScenario: "none"}
	verr := ValidateProjectParameters(invalid)
	require.NotNil(t, verr)
	assert.Len(t, verr.Violations, 4)
}
