// Package metrics provides Prometheus metrics for the SafeVault server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safevault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safevault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safevault_storage_operations_total",
			Help: "Total storage capability calls",
		},
		[]string{"backend", "operation", "status"},
	)

	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safevault_storage_operation_duration_seconds",
			Help:    "Storage capability call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	vaultOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safevault_vault_operations_total",
			Help: "Document vault operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	vaultDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "safevault_vault_documents",
			Help: "Documents in the last successful listing",
		},
	)

	savedLocations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "safevault_saved_locations",
			Help: "Number of saved locations",
		},
	)
)

// Outcome labels for vault operations.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeValidation = "validation"
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordStorageOperation records one storage capability call.
func RecordStorageOperation(backend, operation string, duration time.Duration, success bool) {
	storageOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	storageOperationsTotal.WithLabelValues(backend, operation, status).Inc()
}

// RecordVaultOperation counts a vault operation by outcome.
func RecordVaultOperation(operation, outcome string) {
	vaultOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// SetVaultDocuments sets the size of the current document list.
func SetVaultDocuments(n int) {
	vaultDocuments.Set(float64(n))
}

// SetSavedLocations sets the size of the saved-locations list.
func SetSavedLocations(n int) {
	savedLocations.Set(float64(n))
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request metrics labelled by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
	})
}
