package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests no chi route claimed, keeping 404 scans out of label space.
const unmatchedRoute = "unmatched"

// HTTP Prometheus metrics.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "visiolingua",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "visiolingua",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency; story and query routes include generation time",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	HTTPInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "visiolingua",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Requests currently being served",
		},
	)

	HTTPResponseBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "visiolingua",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Response body size; image results dominate the upper buckets",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"route"},
	)
)

var httpMetricsRegistered bool

// RegisterHTTPMetrics registers the request metrics served by Middleware. Must be called once from main.
func RegisterHTTPMetrics() {
	if httpMetricsRegistered {
		return
	}
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPInFlight)
	prometheus.MustRegister(HTTPResponseBytes)
	httpMetricsRegistered = true
}

// Middleware records request count, latency and response size labelled by chi route pattern.
// It must be mounted on a chi router so the pattern is resolved after routing.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			HTTPInFlight.Inc()
			defer HTTPInFlight.Dec()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routeLabel(r)

			HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			HTTPResponseBytes.WithLabelValues(route).Observe(float64(ww.BytesWritten()))
		})
	}
}

func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}
