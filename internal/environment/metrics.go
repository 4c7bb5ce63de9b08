package environment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbonlink",
		Subsystem: "environment",
		Name:      "cache_hits_total",
		Help:      "Observation cache hits per domain.",
	}, []string{"domain"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbonlink",
		Subsystem: "environment",
		Name:      "cache_misses_total",
		Help:      "Observation cache misses per domain.",
	}, []string{"domain"})

	providerFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbonlink",
		Subsystem: "environment",
		Name:      "provider_fallbacks_total",
		Help:      "Provider failures recovered with synthetic data, per domain.",
	}, []string{"domain"})
)
