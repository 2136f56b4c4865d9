package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Backpressure reasons.
const reasonGenerationGate = "generation_gate"

// Outcomes of a /generate call, used as the "outcome" label.
const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid"
	outcomeUnavailable = "unavailable"
	outcomeBusy        = "busy"
	outcomeTimeout     = "timeout"
	outcomeError       = "error"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lsai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lsai",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency; /generate dominates the upper buckets",
			Buckets:   []float64{.005, .025, .1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lsai",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "HTTP requests currently being served",
		},
	)

	backpressureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lsai",
			Subsystem: "http",
			Name:      "backpressure_total",
			Help:      "Requests rejected with 429 by reason",
		},
		[]string{"reason"},
	)

	generateOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lsai",
			Subsystem: "http",
			Name:      "generate_outcomes_total",
			Help:      "/generate responses by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight, backpressureTotal, generateOutcomesTotal)
}

// MetricsMiddleware instruments requests for Prometheus. The path label is
// read after routing so that chi has resolved the route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInflight.Inc()
		defer httpInflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{
			"path":   routePatternOrPath(r),
			"method": r.Method,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// the URL path. Unmatched paths fall back to the raw path.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// IncrementBackpressure counts a 429 response.
func IncrementBackpressure(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	backpressureTotal.WithLabelValues(reason).Inc()
}

func generateOutcome(outcome string) {
	generateOutcomesTotal.WithLabelValues(outcome).Inc()
}

// outcomeFor classifies a /generate status code.
func outcomeFor(status int) string {
	switch {
	case status < 300:
		return outcomeOK
	case status == http.StatusTooManyRequests:
		return outcomeBusy
	case status == http.StatusServiceUnavailable:
		return outcomeUnavailable
	case status < 500:
		return outcomeInvalid
	default:
		return outcomeError
	}
}
