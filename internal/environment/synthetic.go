package environment

import (
	"math/rand"
	"sync"
	"time"
)

// SyntheticGenerator produces range-plausible observations when a provider
// is unavailable or returns an invalid reading. Values stay inside the
// biome-agnostic plausible ranges documented on each field, so downstream
// calculations keep functioning on degraded input. Safe for concurrent
// use: the aggregator fans out one fallback per domain.
type SyntheticGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticGenerator creates a generator with its own random source.
// A zero seed falls back to the clock; a fixed seed keeps tests
// deterministic.
func NewSyntheticGenerator(seed int64) *SyntheticGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SyntheticGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *SyntheticGenerator) float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

func (g *SyntheticGenerator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

// Weather generates a plausible weather observation (20-30°C, 60-90%
// humidity, 0-50mm rainfall, 0-10 m/s wind, 400-1000 W/m² solar).
func (g *SyntheticGenerator) Weather() WeatherObservation {
	return WeatherObservation{
		Temperature:    20 + g.float64()*10,
		Humidity:       60 + g.float64()*30,
		Rainfall:       g.float64() * 50,
		WindSpeed:      g.float64() * 10,
		SolarRadiation: 400 + g.float64()*600,
		Timestamp:      time.Now().UTC(),
		Source:         SourceSynthetic,
	}
}

// Satellite generates a plausible vegetation reading (NDVI 0.3-0.7,
// EVI 0.2-0.5, LAI 1-4, biomass 5000-20000 kg/ha).
func (g *SyntheticGenerator) Satellite() SatelliteObservation {
	return SatelliteObservation{
		NDVI:         0.3 + g.float64()*0.4,
		EVI:          0.2 + g.float64()*0.3,
		LAI:          1 + g.float64()*3,
		Biomass:      5000 + g.float64()*15000,
		CloudCover:   g.float64() * 30,
		ForestHealth: 0.7 + g.float64()*0.3,
		Timestamp:    time.Now().UTC(),
		Source:       SourceSynthetic,
	}
}

// Soil generates a plausible soil reading (moisture 0.2-0.6 volumetric,
// 15-25°C, pH 5.5-7.5, organic matter 2-6%, N 50-150, P 10-40, K 100-300).
func (g *SyntheticGenerator) Soil() SoilObservation {
	return SoilObservation{
		Moisture:      0.2 + g.float64()*0.4,
		Temperature:   15 + g.float64()*10,
		PH:            5.5 + g.float64()*2,
		OrganicMatter: 2 + g.float64()*4,
		Nitrogen:      50 + g.float64()*100,
		Phosphorus:    10 + g.float64()*30,
		Potassium:     100 + g.float64()*200,
		Timestamp:     time.Now().UTC(),
		Source:        SourceSynthetic,
	}
}

// Fire generates a low-risk fire reading (risk 0-0.3, 0-1 active fires,
// 0-10 ha burned).
func (g *SyntheticGenerator) Fire() FireObservation {
	return FireObservation{
		FireRisk:    g.float64() * 0.3,
		ActiveFires: g.intn(2),
		BurnedArea:  g.float64() * 10,
		Timestamp:   time.Now().UTC(),
		Source:      SourceSynthetic,
	}
}
