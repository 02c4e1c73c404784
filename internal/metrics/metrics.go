// Package metrics provides Prometheus metrics collection for tokend.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Global metrics - used by the application
	// Using atomic.Pointer for lock-free initialization checks on hot path metrics.
	requestsTotal        atomic.Pointer[prometheus.CounterVec]
	requestDuration      atomic.Pointer[prometheus.HistogramVec]
	authFailuresTotal    atomic.Pointer[prometheus.CounterVec]
	tokensIssuedTotal    atomic.Pointer[prometheus.CounterVec]
	tokensRevokedTotal   atomic.Pointer[prometheus.CounterVec]
	tokenOpFailuresTotal atomic.Pointer[prometheus.CounterVec]
)

// Init initializes all Prometheus metrics and registers them with the provided registry.
// This should be called once at application startup.
func Init(reg prometheus.Registerer, version string) error {
	requestsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokend",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestsTotalVec); err != nil {
		return fmt.Errorf("failed to register requestsTotal: %w", err)
	}

	requestDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tokend",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestDurationVec); err != nil {
		return fmt.Errorf("failed to register requestDuration: %w", err)
	}

	// Auth failures counter: missing or invalid bearer tokens, insufficient privilege
	authFailuresTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokend",
			Name:      "auth_failures_total",
			Help:      "Total number of authentication failures",
		},
		[]string{"reason"},
	)
	if err := reg.Register(authFailuresTotalVec); err != nil {
		return fmt.Errorf("failed to register authFailuresTotal: %w", err)
	}

	tokensIssuedTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokend",
			Name:      "tokens_issued_total",
			Help:      "Total number of token secrets issued, by kind and operation (create, regenerate)",
		},
		[]string{"kind", "op"},
	)
	if err := reg.Register(tokensIssuedTotalVec); err != nil {
		return fmt.Errorf("failed to register tokensIssued: %w", err)
	}

	tokensRevokedTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokend",
			Name:      "tokens_revoked_total",
			Help:      "Total number of tokens deleted",
		},
		[]string{"kind"},
	)
	if err := reg.Register(tokensRevokedTotalVec); err != nil {
		return fmt.Errorf("failed to register tokensRevoked: %w", err)
	}

	tokenOpFailuresTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokend",
			Name:      "token_operation_failures_total",
			Help:      "Total number of rejected token management operations, by operation and error code",
		},
		[]string{"op", "code"},
	)
	if err := reg.Register(tokenOpFailuresTotalVec); err != nil {
		return fmt.Errorf("failed to register tokenOpFailures: %w", err)
	}

	infoGaugeVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tokend",
			Name:      "info",
			Help:      "tokend version and build information",
		},
		[]string{"version"},
	)
	infoGaugeInstance := infoGaugeVec.WithLabelValues(version)
	if err := reg.Register(infoGaugeVec); err != nil {
		return fmt.Errorf("failed to register infoGauge: %w", err)
	}
	infoGaugeInstance.Set(1)

	requestsTotal.Store(requestsTotalVec)
	requestDuration.Store(requestDurationVec)
	authFailuresTotal.Store(authFailuresTotalVec)
	tokensIssuedTotal.Store(tokensIssuedTotalVec)
	tokensRevokedTotal.Store(tokensRevokedTotalVec)
	tokenOpFailuresTotal.Store(tokenOpFailuresTotalVec)

	return nil
}

// RecordRequest increments the requests counter for the given method, path, and status code.
func RecordRequest(method, path, statusCode string) {
	if counter := requestsTotal.Load(); counter != nil {
		counter.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordRequestDuration records the latency for a request in seconds.
func RecordRequestDuration(method, path, statusCode string, durationSeconds float64) {
	if histogram := requestDuration.Load(); histogram != nil {
		histogram.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
	}
}

// RecordAuthFailure increments the auth failures counter for the given reason.
// Common reasons: "missing_token", "invalid_token", "insufficient_privilege"
func RecordAuthFailure(reason string) {
	if counter := authFailuresTotal.Load(); counter != nil {
		counter.WithLabelValues(reason).Inc()
	}
}

// RecordTokenIssued counts a freshly issued secret.
func RecordTokenIssued(kind, op string) {
	if counter := tokensIssuedTotal.Load(); counter != nil {
		counter.WithLabelValues(kind, op).Inc()
	}
}

// RecordTokenRevoked counts a deleted token.
func RecordTokenRevoked(kind string) {
	if counter := tokensRevokedTotal.Load(); counter != nil {
		counter.WithLabelValues(kind).Inc()
	}
}

// RecordTokenOpFailure counts a rejected token management call.
func RecordTokenOpFailure(op, code string) {
	if counter := tokenOpFailuresTotal.Load(); counter != nil {
		counter.WithLabelValues(op, code).Inc()
	}
}

// Handler returns an HTTP handler for Prometheus metrics in text format.
// It serves the given gatherer, or the default registry when nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// GetMetricsText returns the Prometheus text-format output from a registry.
// This is useful for testing and debugging.
func GetMetricsText(reg prometheus.Gatherer) (string, error) {
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	body, err := io.ReadAll(w.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read metrics output: %w", err)
	}

	return string(body), nil
}
