// AngelaMos | 2026
// metrics.go

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
	// HTTPRequestsTotal counts requests by route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "companion_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// MessagesTotal counts processed user messages by channel (text, voice)
	// and outcome.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_messages_total",
			Help: "Total number of user messages processed",
		},
		[]string{"channel", "outcome"},
	)

	CoinsDebited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_coins_debited_total",
			Help: "Coins spent on messages",
		},
	)

	CoinsCredited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_coins_credited_total",
			Help: "Coins granted by source",
		},
		[]string{"source"},
	)

	// PaymentsTotal counts payment lifecycle events.
	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_payments_total",
			Help: "Payment events by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_rate_limited_total",
			Help: "Requests rejected by a rate limiter, by limiter scope",
		},
		[]string{"scope"},
	)

	// ProviderDuration tracks latency of third-party calls.
	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "companion_provider_duration_seconds",
			Help:    "Latency of external provider calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"provider", "operation", "outcome"},
	)
)

// ObserveProvider records a provider call that started at start.
func ObserveProvider(provider, operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ProviderDuration.WithLabelValues(provider, operation, outcome).
		Observe(time.Since(start).Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		HTTPRequestsTotal.WithLabelValues(
			r.Method,
			route,
			strconv.Itoa(rec.status),
		).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
