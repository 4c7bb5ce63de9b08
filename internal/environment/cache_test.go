package environment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	cache := NewObservationCache(time.Minute)

	obs := WeatherObservation{Temperature: 25, Source: SourceOpenWeather}
	cache.Set("weather_-3.4653_-62.2159", obs)

	got, ok := cache.Get("weather_-3.4653_-62.2159")
	require.True(t, ok)
	assert.Equal(t, obs, got.(WeatherObservation))

	_, ok = cache.Get("weather_0.0000_0.0000")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	cache := NewObservationCache(20 * time.Millisecond)

	cache.Set("k", "v")
	_, ok := cache.Get("k")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	// Stale entries read as misses; they stay until overwritten.
	_, ok = cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Size())
}

func TestCacheOverwriteRefreshesTTL(t *testing.T) {
	cache := NewObservationCache(20 * time.Millisecond)

	cache.Set("k", "old")
	time.Sleep(30 * time.Millisecond)
	cache.Set("k", "new")

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
	assert.Equal(t, 1, cache.Size())
}

func TestCacheDeleteAndClear(t *testing.T) {
	cache := NewObservationCache(time.Minute)

	cache.Set("a", 1)
	cache.Set("b", 2)
	assert.Equal(t, 2, cache.Size())

	cache.Delete("a")
	_, ok := cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Size())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestCacheDefaultTTL(t *testing.T) {
	cache := NewObservationCache(0)
	cache.Set("k", "v")

	_, ok := cache.Get("k")
	assert.True(t, ok)
}

func TestCoordinateCacheKeyRounding(t *testing.T) {
	a := Coordinate{Latitude: -3.46531, Longitude: -62.21589}
	b := Coordinate{Latitude: -3.46532, Longitude: -62.21590}

	// Nearby coordinates share an entry at four decimal places.
	assert.Equal(t, a.CacheKey("weather"), b.CacheKey("weather"))
	assert.NotEqual(t, a.CacheKey("weather"), a.CacheKey("soil"))
}
