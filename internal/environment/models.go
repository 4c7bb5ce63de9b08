package environment

import (
	"fmt"
	"time"
)

// DataSource identifies whether an observation came from a live provider
// or from the synthetic fallback generator.
type DataSource string

const (
	SourceOpenWeather DataSource = "openweather"
	SourceSentinelHub DataSource = "sentinel-hub"
	SourceCopernicus  DataSource = "copernicus"
	SourceNASAFIRMS   DataSource = "nasa-firms"
	SourceSynthetic   DataSource = "synthetic"
)

// IsSynthetic reports whether the observation was generated locally.
func (s DataSource) IsSynthetic() bool {
	return s == SourceSynthetic
}

// Coordinate identifies where observations apply. Elevation is optional
// (zero means unknown).
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation,omitempty"`
}

// Validate checks the coordinate against WGS84 bounds.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %.4f out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %.4f out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// CacheKey builds a per-domain cache key. Coordinates are rounded to four
// decimal places (~11 m) so nearby lookups share an entry.
func (c Coordinate) CacheKey(domain string) string {
	return fmt.Sprintf("%s_%.4f_%.4f", domain, c.Latitude, c.Longitude)
}

// WeatherObservation is a single weather reading for a coordinate.
type WeatherObservation struct {
	Temperature    float64    `json:"temperature"`     // °C
	Humidity       float64    `json:"humidity"`        // %
	Rainfall       float64    `json:"rainfall"`        // mm
	WindSpeed      float64    `json:"wind_speed"`      // m/s
	SolarRadiation float64    `json:"solar_radiation"` // W/m²
	Timestamp      time.Time  `json:"timestamp"`
	Source         DataSource `json:"source"`
}

// SatelliteObservation carries vegetation indices derived from satellite imagery.
type SatelliteObservation struct {
	NDVI         float64    `json:"ndvi"`          // [0, 1]
	EVI          float64    `json:"evi"`           // treated as [0, 1]
	LAI          float64    `json:"lai"`           // leaf area index
	Biomass      float64    `json:"biomass"`       // kg/ha
	CloudCover   float64    `json:"cloud_cover"`   // [0, 100]
	ForestHealth float64    `json:"forest_health"` // [0, 1]
	Timestamp    time.Time  `json:"timestamp"`
	Source       DataSource `json:"source"`
}

// SoilObservation is a soil condition reading.
type SoilObservation struct {
	Moisture      float64    `json:"moisture"`       // [0, 1] volumetric for stock mode, % for balance mode inputs
	Temperature   float64    `json:"temperature"`    // °C
	PH            float64    `json:"ph"`
	OrganicMatter float64    `json:"organic_matter"` // %
	Nitrogen      float64    `json:"nitrogen"`       // mg/kg
	Phosphorus    float64    `json:"phosphorus"`     // mg/kg
	Potassium     float64    `json:"potassium"`      // mg/kg
	Timestamp     time.Time  `json:"timestamp"`
	Source        DataSource `json:"source"`
}

// FireObservation is a fire risk reading.
type FireObservation struct {
	FireRisk    float64    `json:"fire_risk"`    // [0, 1]
	ActiveFires int        `json:"active_fires"` // >= 0
	BurnedArea  float64    `json:"burned_area"`  // hectares, >= 0
	Timestamp   time.Time  `json:"timestamp"`
	Source      DataSource `json:"source"`
}

// ObservationSet bundles the four observation domains for a coordinate.
type ObservationSet struct {
	Weather   WeatherObservation   `json:"weather"`
	Satellite SatelliteObservation `json:"satellite"`
	Soil      SoilObservation      `json:"soil"`
	Fire      FireObservation      `json:"fire"`
}
