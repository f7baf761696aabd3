package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch outcome labels.
const (
	OutcomeStatic     = "static"
	OutcomeMiddleware = "middleware"
	OutcomeRedirect   = "redirect"
	OutcomeSSR        = "ssr"
	OutcomeError      = "error"
)

var (
	// DispatchTotal counts dispatch decisions by path kind (asset|page)
	// and outcome.
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rendergate_dispatch_total",
		Help: "Dispatch decisions by path kind and outcome.",
	}, []string{"kind", "outcome"})

	// DispatchDuration observes time from dispatch entry to response end.
	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rendergate_dispatch_duration_seconds",
		Help:    "Dispatch latency by outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	// MiddlewareFailures counts middleware errors swallowed by the
	// fail-open boundary. Failures stay observable here and in the log.
	MiddlewareFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rendergate_middleware_failures_total",
		Help: "Middleware invocations that errored and were failed open.",
	})

	// StreamFailures counts response bodies that errored after headers
	// were already sent.
	StreamFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rendergate_stream_failures_total",
		Help: "Responses terminated by a mid-stream transport or file error.",
	})

	// RateLimited counts SSR fallbacks rejected by the rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rendergate_rate_limited_total",
		Help: "Requests rejected by the SSR rate limiter.",
	})
)

// ObserveDispatch records one finished dispatch.
func ObserveDispatch(kind, outcome string, start time.Time) {
	DispatchTotal.WithLabelValues(kind, outcome).Inc()
	DispatchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
