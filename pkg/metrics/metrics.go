// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanillameta_queries_total",
			Help: "Total number of ad-hoc query executions by engine and status.",
		},
		[]string{"engine", "status"},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vanillameta_query_duration_seconds",
			Help:    "Query execution latency including normalization.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"engine"},
	)
	connectionTestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanillameta_connection_tests_total",
			Help: "Total number of connectivity probes by engine and status.",
		},
		[]string{"engine", "status"},
	)
	handleOpensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanillameta_handle_opens_total",
			Help: "Total number of durable handle constructions by engine and outcome.",
		},
		[]string{"engine", "outcome"},
	)
	registryHandles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vanillameta_registry_handles",
			Help: "Current number of durable handles held by the connection registry.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryDurationSeconds,
		connectionTestsTotal,
		handleOpensTotal,
		registryHandles,
	)
}

// ObserveQuery records one query execution.
func ObserveQuery(engine, status string, elapsed time.Duration) {
	queriesTotal.WithLabelValues(engine, status).Inc()
	queryDurationSeconds.WithLabelValues(engine).Observe(elapsed.Seconds())
}

// ObserveConnectionTest records one connectivity probe.
func ObserveConnectionTest(engine, status string) {
	connectionTestsTotal.WithLabelValues(engine, status).Inc()
}

// ObserveHandleOpen records a durable handle construction attempt.
func ObserveHandleOpen(engine string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	handleOpensTotal.WithLabelValues(engine, outcome).Inc()
}

// SetRegistryHandles sets the registry size gauge.
func SetRegistryHandles(n int) {
	if n < 0 {
		n = 0
	}
	registryHandles.Set(float64(n))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
