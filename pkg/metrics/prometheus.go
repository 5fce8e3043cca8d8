// Package metrics provides Prometheus metrics for the confetti pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline metrics
	webhooksReceived     *prometheus.CounterVec
	deliveriesDuplicate  prometheus.Counter
	milestonesEmitted    *prometheus.CounterVec
	milestonesDuplicate  prometheus.Counter
	counterConflicts     prometheus.Counter
	detectRetryExhausted prometheus.Counter

	// Renderer metrics
	renderFallbacks prometheus.Counter
	renderLatency   prometheus.Histogram

	// Notification metrics
	notifications *prometheus.CounterVec

	// State metrics
	milestoneCount prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "confetti",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.webhooksReceived = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "webhooks_received_total",
		Help:      "Inbound webhook deliveries by normalized event kind",
	}, []string{"kind"})

	m.deliveriesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "deliveries_duplicate_total",
		Help:      "Deliveries dropped at ingress because their delivery id was already seen",
	})

	m.milestonesEmitted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "milestones_emitted_total",
		Help:      "Milestones detected by category",
	}, []string{"category"})

	m.milestonesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "milestones_duplicate_total",
		Help:      "Milestone appends absorbed by the idempotent id path",
	})

	m.counterConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "counter_cas_conflicts_total",
		Help:      "Compare-and-swap conflicts on contributor counters",
	})

	m.detectRetryExhausted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detect_retry_exhausted_total",
		Help:      "Detector cycles that gave up after the bounded retry budget",
	})

	m.renderFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "render_fallbacks_total",
		Help:      "Celebration posts that fell back to the deterministic template",
	})

	m.renderLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "render_latency_ms",
		Help:      "Celebration post rendering latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.notifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_total",
		Help:      "Channel delivery attempts by channel and outcome",
	}, []string{"channel", "outcome"})

	m.milestoneCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "milestones_stored",
		Help:      "Milestones currently in the store",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method, and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Current heap allocation in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Current number of goroutines",
	})
}

// RecordWebhookReceived counts one inbound delivery by normalized kind.
func RecordWebhookReceived(kind string) {
	globalManager.webhooksReceived.WithLabelValues(kind).Inc()
}

// RecordDeliveryDuplicate counts one delivery-id duplicate at ingress.
func RecordDeliveryDuplicate() {
	globalManager.deliveriesDuplicate.Inc()
}

// RecordMilestoneEmitted counts one detected milestone.
func RecordMilestoneEmitted(category string) {
	globalManager.milestonesEmitted.WithLabelValues(category).Inc()
}

// RecordDuplicateMilestone counts one idempotent append no-op.
func RecordDuplicateMilestone() {
	globalManager.milestonesDuplicate.Inc()
}

// RecordCounterConflict counts one CAS version conflict.
func RecordCounterConflict() {
	globalManager.counterConflicts.Inc()
}

// RecordDetectRetryExhausted counts one exhausted detector retry budget.
func RecordDetectRetryExhausted() {
	globalManager.detectRetryExhausted.Inc()
}

// RecordRenderFallback counts one fallback to the template renderer.
func RecordRenderFallback() {
	globalManager.renderFallbacks.Inc()
}

// RecordRenderLatency observes one render duration in milliseconds.
func RecordRenderLatency(latencyMs float64) {
	globalManager.renderLatency.Observe(latencyMs)
}

// RecordNotification counts one channel delivery attempt.
func RecordNotification(channel, outcome string) {
	globalManager.notifications.WithLabelValues(channel, outcome).Inc()
}

// UpdateMilestoneCount sets the stored-milestone gauge.
func UpdateMilestoneCount(count int) {
	globalManager.milestoneCount.Set(float64(count))
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes one HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry served at /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
