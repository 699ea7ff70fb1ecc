// Package metrics exposes Prometheus counters for the resolver and the
// admin surface. Metrics are registered once via InitMetrics; recorders
// are safe no-ops before that, so library use without a metrics
// endpoint carries no cost.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	engineFetchTotal  *prometheus.CounterVec
	cacheLookupTotal  *prometheus.CounterVec
	adminRequestTotal *prometheus.CounterVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// Recorder provides methods to record resolution and admin metrics.
type Recorder struct{}

// NewRecorder creates a Recorder. Metrics must have been registered by
// InitMetrics for records to be kept.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// InitMetrics registers all Prometheus metrics. Call once at service
// startup; library consumers that skip it get no-op recorders.
func InitMetrics() {
	metricsOnce.Do(func() {
		engineFetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realmsecrets_engine_fetch_total",
				Help: "Total number of secret fetches against the engine",
			},
			[]string{"outcome"},
		)

		cacheLookupTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realmsecrets_cache_lookup_total",
				Help: "Total number of cache lookups during resolution",
			},
			[]string{"result"},
		)

		adminRequestTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realmsecrets_admin_request_total",
				Help: "Total number of admin secret operations",
			},
			[]string{"operation", "status"},
		)

		metricsRegistered = true
	})
}

// RecordEngineFetch records a fetch against the engine with its outcome
// ("success", "not_found" or "error").
func (r *Recorder) RecordEngineFetch(outcome string) {
	if !metricsRegistered || engineFetchTotal == nil {
		return
	}
	engineFetchTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records a cache lookup result ("hit" or "miss").
func (r *Recorder) RecordCacheLookup(result string) {
	if !metricsRegistered || cacheLookupTotal == nil {
		return
	}
	cacheLookupTotal.WithLabelValues(result).Inc()
}

// RecordAdminRequest records an admin operation and its HTTP status.
func (r *Recorder) RecordAdminRequest(operation, status string) {
	if !metricsRegistered || adminRequestTotal == nil {
		return
	}
	adminRequestTotal.WithLabelValues(operation, status).Inc()
}

// GetEngineFetchTotal returns the engine fetch counter for testing.
func GetEngineFetchTotal() *prometheus.CounterVec {
	return engineFetchTotal
}

// GetCacheLookupTotal returns the cache lookup counter for testing.
func GetCacheLookupTotal() *prometheus.CounterVec {
	return cacheLookupTotal
}

// GetAdminRequestTotal returns the admin request counter for testing.
func GetAdminRequestTotal() *prometheus.CounterVec {
	return adminRequestTotal
}
