package environment

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Aggregator resolves the four observation domains for a coordinate. Each
// domain is fetched concurrently: cache first, then the live provider with
// retry and a circuit breaker, then the synthetic generator. Provider
// failures are recovered locally and never propagated; callers can tell
// real from synthetic data only through the Source tag.
type Aggregator struct {
	weather   WeatherProvider
	satellite SatelliteProvider
	soil      SoilProvider
	fire      FireProvider

	cache     *ObservationCache
	synthetic *SyntheticGenerator
	logger    *zap.Logger

	breakers map[string]*gobreaker.CircuitBreaker
	maxRetry time.Duration
}

// AggregatorOption customizes the aggregator.
type AggregatorOption func(*Aggregator)

// WithCache injects a custom observation cache.
func WithCache(cache *ObservationCache) AggregatorOption {
	return func(a *Aggregator) { a.cache = cache }
}

// WithSyntheticSeed fixes the fallback generator seed, for tests.
func WithSyntheticSeed(seed int64) AggregatorOption {
	return func(a *Aggregator) { a.synthetic = NewSyntheticGenerator(seed) }
}

// WithRetryBudget bounds the per-fetch retry window.
func WithRetryBudget(d time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.maxRetry = d }
}

// NewAggregator wires providers, cache and fallback generator together.
func NewAggregator(
	weather WeatherProvider,
	satellite SatelliteProvider,
	soil SoilProvider,
	fire FireProvider,
	logger *zap.Logger,
	opts ...AggregatorOption,
) *Aggregator {
	a := &Aggregator{
		weather:   weather,
		satellite: satellite,
		soil:      soil,
		fire:      fire,
		cache:     NewObservationCache(DefaultCacheTTL),
		synthetic: NewSyntheticGenerator(0),
		logger:    logger,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		maxRetry:  15 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	for _, domain := range []string{"weather", "satellite", "soil", "fire"} {
		a.breakers[domain] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    domain,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
	}
	return a
}

// FetchAll resolves all four domains concurrently. It never fails: a domain
// whose provider is down comes back synthetic. Only a cancelled context
// aborts the fan-out.
func (a *Aggregator) FetchAll(ctx context.Context, coord Coordinate) (*ObservationSet, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	set := &ObservationSet{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		set.Weather = a.FetchWeather(ctx, coord)
		return ctx.Err()
	})
	g.Go(func() error {
		set.Satellite = a.FetchSatellite(ctx, coord)
		return ctx.Err()
	})
	g.Go(func() error {
		set.Soil = a.FetchSoil(ctx, coord)
		return ctx.Err()
	})
	g.Go(func() error {
		set.Fire = a.FetchFire(ctx, coord)
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

// FetchWeather resolves a weather observation for the coordinate.
func (a *Aggregator) FetchWeather(ctx context.Context, coord Coordinate) WeatherObservation {
	key := coord.CacheKey("weather")
	if cached, ok := a.cache.Get(key); ok {
		cacheHits.WithLabelValues("weather").Inc()
		return cached.(WeatherObservation)
	}
	cacheMisses.WithLabelValues("weather").Inc()

	obs, err := fetchWithBreaker(ctx, a, "weather", func(ctx context.Context) (WeatherObservation, error) {
		return a.weather.FetchWeather(ctx, coord)
	})
	if err != nil {
		a.logger.Warn("weather provider failed, using synthetic data",
			zap.Float64("lat", coord.Latitude), zap.Float64("lon", coord.Longitude), zap.Error(err))
		providerFallbacks.WithLabelValues("weather").Inc()
		obs = a.synthetic.Weather()
	}
	a.cache.Set(key, obs)
	return obs
}

// FetchSatellite resolves a satellite observation for the coordinate.
func (a *Aggregator) FetchSatellite(ctx context.Context, coord Coordinate) SatelliteObservation {
	key := coord.CacheKey("satellite")
	if cached, ok := a.cache.Get(key); ok {
		cacheHits.WithLabelValues("satellite").Inc()
		return cached.(SatelliteObservation)
	}
	cacheMisses.WithLabelValues("satellite").Inc()

	obs, err := fetchWithBreaker(ctx, a, "satellite", func(ctx context.Context) (SatelliteObservation, error) {
		return a.satellite.FetchSatellite(ctx, coord)
	})
	if err != nil {
		a.logger.Warn("satellite provider failed, using synthetic data",
			zap.Float64("lat", coord.Latitude), zap.Float64("lon", coord.Longitude), zap.Error(err))
		providerFallbacks.WithLabelValues("satellite").Inc()
		obs = a.synthetic.Satellite()
	}
	a.cache.Set(key, obs)
	return obs
}

// FetchSoil resolves a soil observation for the coordinate.
func (a *Aggregator) FetchSoil(ctx context.Context, coord Coordinate) SoilObservation {
	key := coord.CacheKey("soil")
	if cached, ok := a.cache.Get(key); ok {
		cacheHits.WithLabelValues("soil").Inc()
		return cached.(SoilObservation)
	}
	cacheMisses.WithLabelValues("soil").Inc()

	obs, err := fetchWithBreaker(ctx, a, "soil", func(ctx context.Context) (SoilObservation, error) {
		return a.soil.FetchSoil(ctx, coord)
	})
	if err != nil {
		a.logger.Warn("soil provider failed, using synthetic data",
			zap.Float64("lat", coord.Latitude), zap.Float64("lon", coord.Longitude), zap.Error(err))
		providerFallbacks.WithLabelValues("soil").Inc()
		obs = a.synthetic.Soil()
	}
	a.cache.Set(key, obs)
	return obs
}

// FetchFire resolves a fire-risk observation for the coordinate.
func (a *Aggregator) FetchFire(ctx context.Context, coord Coordinate) FireObservation {
	key := coord.CacheKey("fire")
	if cached, ok := a.cache.Get(key); ok {
		cacheHits.WithLabelValues("fire").Inc()
		return cached.(FireObservation)
	}
	cacheMisses.WithLabelValues("fire").Inc()

	obs, err := fetchWithBreaker(ctx, a, "fire", func(ctx context.Context) (FireObservation, error) {
		return a.fire.FetchFire(ctx, coord)
	})
	if err != nil {
		a.logger.Warn("fire provider failed, using synthetic data",
			zap.Float64("lat", coord.Latitude), zap.Float64("lon", coord.Longitude), zap.Error(err))
		providerFallbacks.WithLabelValues("fire").Inc()
		obs = a.synthetic.Fire()
	}
	a.cache.Set(key, obs)
	return obs
}

// ClearCache drops all cached observations.
func (a *Aggregator) ClearCache() {
	a.cache.Clear()
}

// fetchWithBreaker runs a provider call behind the domain's circuit breaker
// with exponential backoff, bounded by the aggregator's retry budget and the
// caller's context.
func fetchWithBreaker[T any](ctx context.Context, a *Aggregator, domain string, fetch func(context.Context) (T, error)) (T, error) {
	breaker := a.breakers[domain]

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = a.maxRetry
	policy := backoff.WithContext(bo, ctx)

	var result T
	op := func() error {
		out, err := breaker.Execute(func() (interface{}, error) {
			return fetch(ctx)
		})
		if err != nil {
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				// Breaker is open: retrying inside this fetch is pointless.
				return backoff.Permanent(err)
			}
			return err
		}
		result = out.(T)
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
