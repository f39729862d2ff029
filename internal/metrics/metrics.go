// Package metrics holds the Prometheus collectors for imports, option
// fetches and the HTTP API. Collectors register with the default registry on
// package init; the server exposes them at /metrics.
//
//	metrics.ImportsTotal.WithLabelValues("contacts", metrics.StatusSuccess).Inc()
//	metrics.ImportRows.WithLabelValues("contacts", metrics.RowAccepted).Add(42)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected" // Header or decode failure, nothing accepted
	StatusPartial  = "partial"  // Some rows accepted, some rejected
	StatusBusy     = "busy"     // Limiter refused the import

	RowAccepted = "accepted"
	RowRejected = "rejected"
)

var (
	// ImportsTotal counts import operations.
	// Labels: entity, status (success/partial/rejected/busy)
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridkit_imports_total",
			Help: "Total number of import operations",
		},
		[]string{"entity", "status"},
	)

	// ImportRows counts data rows by outcome.
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridkit_import_rows_total",
			Help: "Total number of imported data rows by outcome",
		},
		[]string{"entity", "outcome"},
	)

	// ImportDuration tracks end-to-end import latency in seconds.
	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridkit_import_duration_seconds",
			Help:    "Import duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"entity"},
	)

	// ActiveImports tracks imports holding a limiter slot.
	ActiveImports = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridkit_active_imports",
			Help: "Number of imports currently running",
		},
	)

	// OptionFetchFailures counts remote option fetches that degraded to an
	// empty list. Labels: field
	OptionFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridkit_option_fetch_failures_total",
			Help: "Remote option fetches that failed and returned no options",
		},
		[]string{"field"},
	)

	// HTTPRequests counts API requests. Labels: method, route, status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridkit_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveImport records one finished import.
func ObserveImport(entity string, accepted, rejected int, failed bool, elapsed time.Duration) {
	status := StatusSuccess
	switch {
	case failed || (accepted == 0 && rejected > 0):
		status = StatusRejected
	case rejected > 0:
		status = StatusPartial
	}

	ImportsTotal.WithLabelValues(entity, status).Inc()
	ImportRows.WithLabelValues(entity, RowAccepted).Add(float64(accepted))
	ImportRows.WithLabelValues(entity, RowRejected).Add(float64(rejected))
	ImportDuration.WithLabelValues(entity).Observe(elapsed.Seconds())
}
