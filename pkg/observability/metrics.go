package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AccessDeniedTotal *prometheus.CounterVec
	AuthFailuresTotal *prometheus.CounterVec

	// Directory metrics
	DirectoryOperationsTotal   *prometheus.CounterVec
	DirectoryOperationDuration *prometheus.HistogramVec
	ValidationFailuresTotal    *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	CompaniesTotal  prometheus.Gauge
	UsersTotal      prometheus.Gauge
	APITokensActive prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roster_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AccessDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_access_denied_total",
				Help: "Requests rejected by the authorization gate",
			},
			[]string{"resource", "operation", "role"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_auth_failures_total",
				Help: "Bearer token resolutions that failed",
			},
			[]string{"reason"},
		),
		DirectoryOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_directory_operations_total",
				Help: "Total number of directory operations",
			},
			[]string{"operation", "status"},
		),
		DirectoryOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roster_directory_operation_duration_seconds",
				Help:    "Directory operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ValidationFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_validation_failures_total",
				Help: "Write payloads rejected by validation",
			},
			[]string{"resource"},
		),
		DBConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_db_connections_active",
			Help: "Number of active database connections",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_db_connections_idle",
			Help: "Number of idle database connections",
		}),
		CompaniesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_companies_total",
			Help: "Total number of companies",
		}),
		UsersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_users_total",
			Help: "Total number of users",
		}),
		APITokensActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_api_tokens_active",
			Help: "Number of unexpired, unrevoked API tokens",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AccessDeniedTotal,
		m.AuthFailuresTotal,
		m.DirectoryOperationsTotal,
		m.DirectoryOperationDuration,
		m.ValidationFailuresTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.CompaniesTotal,
		m.UsersTotal,
		m.APITokensActive,
	)

	return m
}

// Handler returns the /metrics endpoint for the given registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status for metric labels
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// InstrumentHandler wraps an HTTP handler with request count and duration
// metrics. The path label is the mux route template, not the raw URL, so
// cardinality stays bounded.
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// ObserveDirectoryOperation records one directory service call
func (m *Metrics) ObserveDirectoryOperation(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DirectoryOperationsTotal.WithLabelValues(operation, status).Inc()
	m.DirectoryOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
