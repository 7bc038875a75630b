// Package metrics provides Prometheus metrics for the skillcheck service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Model calls
	llmCalls     *prometheus.CounterVec
	llmLatency   *prometheus.HistogramVec
	llmFallbacks *prometheus.CounterVec

	// Domain
	extractions      *prometheus.CounterVec
	phaseTransitions *prometheus.CounterVec
	globalScores     prometheus.Histogram
	feedbackRatings  *prometheus.CounterVec

	// Rate limiting
	rateLimitDecisions *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // service registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "skillcheck",
		subsystem:        "api",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint, method and status code",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_errors_total",
		Help:        "HTTP error responses by endpoint, method, error type and severity",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type", "severity"})

	m.llmCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "llm",
		Name:        "calls_total",
		Help:        "Language model calls by purpose and outcome",
		ConstLabels: m.constLabels,
	}, []string{"purpose", "outcome"})

	m.llmLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "llm",
		Name:        "call_duration_milliseconds",
		Help:        "Language model call latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"purpose"})

	m.llmFallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "llm",
		Name:        "fallbacks_total",
		Help:        "Responses replaced by a deterministic fallback, by purpose and reason",
		ConstLabels: m.constLabels,
	}, []string{"purpose", "reason"})

	m.extractions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "assessment",
		Name:        "score_extractions_total",
		Help:        "Score extraction attempts from model text by strategy",
		ConstLabels: m.constLabels,
	}, []string{"purpose", "strategy"})

	m.phaseTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "mentor",
		Name:        "phase_transitions_total",
		Help:        "Mentor phase transitions by source and target phase",
		ConstLabels: m.constLabels,
	}, []string{"from", "to"})

	m.globalScores = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "assessment",
		Name:        "global_score",
		Help:        "Distribution of computed global skill scores",
		Buckets:     prometheus.LinearBuckets(10, 10, 10),
		ConstLabels: m.constLabels,
	})

	m.feedbackRatings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "feedback",
		Name:        "ratings_total",
		Help:        "User ratings received by star value",
		ConstLabels: m.constLabels,
	}, []string{"rating"})

	m.rateLimitDecisions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "ratelimit",
		Name:        "decisions_total",
		Help:        "Rate limiter decisions (allowed, rejected, bypassed)",
		ConstLabels: m.constLabels,
	}, []string{"decision"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_usage_bytes",
		Help:        "Allocated heap memory in bytes",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Current number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		ConstLabels: m.constLabels,
	})
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes the request latency in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError counts an HTTP response with an error status.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType, severity).Inc()
}

// RecordLLMCall counts a model call; outcome is "ok", "error" or "empty".
func RecordLLMCall(purpose, outcome string) {
	globalManager.llmCalls.WithLabelValues(purpose, outcome).Inc()
}

// RecordLLMLatency observes a model call latency in milliseconds.
func RecordLLMLatency(purpose string, latencyMs float64) {
	globalManager.llmLatency.WithLabelValues(purpose).Observe(latencyMs)
}

// RecordFallback counts a response replaced by its templated fallback.
func RecordFallback(purpose, reason string) {
	globalManager.llmFallbacks.WithLabelValues(purpose, reason).Inc()
}

// RecordExtraction counts which extraction strategy recovered a score ("none" on failure).
func RecordExtraction(purpose, strategy string) {
	globalManager.extractions.WithLabelValues(purpose, strategy).Inc()
}

// RecordPhaseTransition counts a mentor phase transition.
func RecordPhaseTransition(from, to string) {
	globalManager.phaseTransitions.WithLabelValues(from, to).Inc()
}

// ObserveGlobalScore records a computed global score.
func ObserveGlobalScore(score int) {
	globalManager.globalScores.Observe(float64(score))
}

// RecordFeedbackRating counts a user rating.
func RecordFeedbackRating(rating int) {
	globalManager.feedbackRatings.WithLabelValues(strconv.Itoa(rating)).Inc()
}

// RecordRateLimitDecision counts a limiter decision.
func RecordRateLimitDecision(decision string) {
	globalManager.rateLimitDecisions.WithLabelValues(decision).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}
