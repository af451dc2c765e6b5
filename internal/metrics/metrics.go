// Package metrics exposes Prometheus collectors for the engine and the HTTP layer.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wellness-api/internal/domain"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wellness",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wellness",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wellness",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	engineOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wellness",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	conflictRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wellness",
			Subsystem: "engine",
			Name:      "conflict_retries_total",
			Help:      "Store revision conflicts that triggered a retry.",
		},
		[]string{"operation"},
	)

	otpDispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wellness",
			Subsystem: "otp",
			Name:      "dispatches_total",
			Help:      "OTP deliveries by channel and result.",
		},
		[]string{"channel", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		engineOutcomes,
		conflictRetries,
		otpDispatches,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with HTTP metrics collection. Requests are
// labelled with the chi route pattern so path parameters don't explode cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordOutcome counts one engine operation. A nil err is counted as "ok".
func RecordOutcome(operation string, err error) {
	engineOutcomes.WithLabelValues(operation, Outcome(err)).Inc()
}

// RecordStatus counts a successful operation with a non-error status such as limit_reached.
func RecordStatus(operation, status string) {
	engineOutcomes.WithLabelValues(operation, status).Inc()
}

func RecordConflictRetry(operation string) {
	conflictRetries.WithLabelValues(operation).Inc()
}

func RecordDispatch(channel string, err error) {
	otpDispatches.WithLabelValues(channel, strconv.FormatBool(err == nil)).Inc()
}

var outcomeLabels = []struct {
	err   error
	label string
}{
	{domain.ErrNotFound, "not_found"},
	{domain.ErrBadRequest, "bad_request"},
	{domain.ErrUnauthorized, "unauthorized"},
	{domain.ErrTransientConflict, "transient_conflict"},
	{domain.ErrExpired, "expired"},
	{domain.ErrMismatch, "mismatch"},
	{domain.ErrAlreadyConsumed, "already_consumed"},
	{domain.ErrTooManyAttempts, "too_many_attempts"},
	{domain.ErrInvalidToken, "invalid_token"},
	{domain.ErrTokenExpired, "token_expired"},
	{domain.ErrTokenAlreadyConsumed, "token_already_consumed"},
	{domain.ErrAlreadyRegistered, "already_registered"},
	{domain.ErrUsernameTaken, "username_taken"},
	{domain.ErrInvalidTimezone, "invalid_timezone"},
	{domain.ErrInvalidAmount, "invalid_amount"},
	{domain.ErrUnknownService, "unknown_service"},
	{domain.ErrBelowMinimumBalance, "below_minimum_balance"},
	{domain.ErrInsufficientFunds, "insufficient_funds"},
}

// Outcome maps err to a bounded label value.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, o := range outcomeLabels {
		if errors.Is(err, o.err) {
			return o.label
		}
	}
	return "error"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
