// Package metrics holds the Prometheus collectors of the rewards service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dreamplay_rewards_build_info",
			Help: "Build information of the rewards service",
		},
		[]string{"version", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dreamplay_rewards_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dreamplay_rewards_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	StoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dreamplay_rewards_store_operations_total",
			Help: "Key-value store operations by backend, operation and outcome",
		},
		[]string{"backend", "op", "outcome"},
	)

	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dreamplay_rewards_store_operation_duration_seconds",
			Help:    "Duration of key-value store operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"backend", "op"},
	)

	PointsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dreamplay_rewards_points_awarded_total",
			Help: "Points credited to wallets, by source",
		},
		[]string{"source"},
	)

	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dreamplay_rewards_daily_claims_total",
			Help: "Daily claim attempts by outcome",
		},
		[]string{"outcome"},
	)

	SponsorLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dreamplay_rewards_sponsor_lookups_total",
			Help: "On-chain sponsor graph reads by call and outcome",
		},
		[]string{"call", "outcome"},
	)
)

// Outcome labels
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency per matched route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
