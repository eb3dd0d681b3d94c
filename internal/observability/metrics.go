package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	registryRequestsTotal  *prometheus.CounterVec
	registryLatencySeconds *prometheus.HistogramVec
	registryErrorsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for registry observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		registryRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_requests_total",
			Help: "Total number of registry API requests served.",
		}, []string{"method", "route", "status"})

		registryLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registry_latency_seconds",
			Help:    "Latency distribution for registry API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		registryErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_errors_total",
			Help: "Total number of error responses returned by registry endpoints.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(registryRequestsTotal, registryLatencySeconds, registryErrorsTotal)
	})
}

// RegistryRequests exposes the counter for registry requests.
func RegistryRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return registryRequestsTotal
}

// RegistryLatency exposes the latency histogram for registry requests.
func RegistryLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return registryLatencySeconds
}

// RegistryErrors exposes the counter for registry error responses.
func RegistryErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return registryErrorsTotal
}
