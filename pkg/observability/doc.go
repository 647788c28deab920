// Package observability bundles the operational concerns of the service:
// structured JSON logging over slog, Prometheus metrics, OpenTelemetry
// tracing, health probes, panic recovery, and graceful shutdown.
//
// The logger travels on the request context and picks up the request id and
// acting principal automatically:
//
//	logger := observability.FromContext(r.Context())
//	logger.WithField("company_id", id).Info("company created")
//
// Metrics are registered on an explicit registry so tests can use a fresh
// one:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	mux.Handle("/metrics", observability.Handler(registry))
package observability
