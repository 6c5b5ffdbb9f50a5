package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics instruments the HTTP surface of one service.
type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orderflow",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	prometheus.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Middleware records one observation per request, labeled by the matched
// chi route pattern to keep cardinality bounded.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
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

// DispatcherMetrics instruments outbox drain cycles. All methods are
// nil-safe so wirings without metrics stay clean.
type DispatcherMetrics struct {
	Batches      prometheus.Counter
	Published    prometheus.Counter
	Failures     prometheus.Counter
	BatchMS      prometheus.Histogram
	PendingDepth prometheus.Gauge
}

func NewDispatcherMetrics() *DispatcherMetrics {
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "outbox",
		Name:      "batches_total",
		Help:      "Total number of claim transactions that committed.",
	})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "outbox",
		Name:      "events_published_total",
		Help:      "Total number of outbox rows stamped published.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "outbox",
		Name:      "batch_failures_total",
		Help:      "Total number of claim transactions rolled back.",
	})
	batchMS := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orderflow",
		Subsystem: "outbox",
		Name:      "batch_duration_ms",
		Help:      "Claim-to-commit latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "orderflow",
		Subsystem: "outbox",
		Name:      "pending_events",
		Help:      "Pending outbox rows at the last backlog poll.",
	})

	prometheus.MustRegister(batches, published, failures, batchMS, pending)
	return &DispatcherMetrics{
		Batches:      batches,
		Published:    published,
		Failures:     failures,
		BatchMS:      batchMS,
		PendingDepth: pending,
	}
}

func (m *DispatcherMetrics) ObserveBatch(published int, took time.Duration) {
	if m == nil {
		return
	}
	m.Batches.Inc()
	m.Published.Add(float64(published))
	m.BatchMS.Observe(float64(took.Milliseconds()))
}

func (m *DispatcherMetrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.Failures.Inc()
}

// SetPendingDepth records the backlog size reported by the last stats poll.
func (m *DispatcherMetrics) SetPendingDepth(n int64) {
	if m == nil {
		return
	}
	m.PendingDepth.Set(float64(n))
}

// Handler exposes the default registry for a /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
