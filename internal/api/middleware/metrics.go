package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/safetrack-hq/escalator/internal/metrics"
)

// PrometheusMiddleware records request count, duration, and an
// in-flight gauge, labeled by method and route pattern.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		pattern := routePattern(r)

		metrics.HTTPRequestsTotal.WithLabelValues(
			r.Method,
			pattern,
			strconv.Itoa(wrapped.status),
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			r.Method,
			pattern,
		).Observe(time.Since(start).Seconds())
	})
}

// routePattern prefers the chi route pattern over the raw path so
// /incidents/{id}/escalate stays one series regardless of incident id.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
