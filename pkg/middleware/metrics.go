package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "storefront").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "storefront",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the storefront collectors. It implements action.Recorder
// and document.Recorder, and its Handler instruments HTTP routes.
//
// Metrics collected:
//   - storefront_http_requests_total{method,route,code}
//   - storefront_http_request_duration_seconds{method,route}
//   - storefront_action_dispatch_total{action,status}
//   - storefront_action_dispatch_duration_seconds{action}
//   - storefront_document_operations_total{op,outcome}
//   - storefront_document_operation_duration_seconds{op}
//   - storefront_live_clients
//   - storefront_live_dropped_total
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	storeOpsTotal    *prometheus.CounterVec
	storeOpDuration  *prometheus.HistogramVec
	liveClients      prometheus.Gauge
	liveDropped      prometheus.Counter
}

// NewMetrics registers the collectors. Registering twice against the same
// registry panics, so build one Metrics per registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by route and status code",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "route", "code"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method", "route"}),

		dispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "action_dispatch_total",
			Help:        "Total number of action dispatches by action and status",
			ConstLabels: config.ConstLabels,
		}, []string{"action", "status"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "action_dispatch_duration_seconds",
			Help:        "Action handler duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"action"}),

		storeOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "document_operations_total",
			Help:        "Total number of document store operations by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "outcome"}),

		storeOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "document_operation_duration_seconds",
			Help:        "Document store operation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"op"}),

		liveClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_clients",
			Help:        "Number of connected live feed clients",
			ConstLabels: config.ConstLabels,
		}),

		liveDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_dropped_total",
			Help:        "Total number of live feed clients dropped for falling behind",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// ObserveDispatch records one action dispatch.
func (m *Metrics) ObserveDispatch(actionID, status string, d time.Duration) {
	if m == nil {
		return
	}
	if actionID == "" {
		actionID = "none"
	}
	m.dispatchTotal.WithLabelValues(actionID, status).Inc()
	m.dispatchDuration.WithLabelValues(actionID).Observe(d.Seconds())
}

// ObserveStoreOp records one document store operation.
func (m *Metrics) ObserveStoreOp(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.storeOpsTotal.WithLabelValues(op, outcome).Inc()
	m.storeOpDuration.WithLabelValues(op).Observe(d.Seconds())
}

// LiveClientConnected increments the live client gauge.
func (m *Metrics) LiveClientConnected() {
	if m != nil {
		m.liveClients.Inc()
	}
}

// LiveClientDisconnected decrements the live client gauge.
func (m *Metrics) LiveClientDisconnected() {
	if m != nil {
		m.liveClients.Dec()
	}
}

// LiveClientDropped counts a client removed for falling behind.
func (m *Metrics) LiveClientDropped() {
	if m != nil {
		m.liveDropped.Inc()
	}
}

// Handler returns HTTP middleware recording request counts and durations.
// Routes are labelled with the chi route pattern, so path parameters do
// not create new series.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// routePattern returns the matched chi pattern, or "unmatched" for
// requests no route handled.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
