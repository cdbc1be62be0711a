// Package metrics provides Prometheus metrics for the verdict judging engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Engine metrics.
	assignmentsCreated   prometheus.Counter
	assignmentsSkipped   prometheus.Counter
	votesRecorded        prometheus.Counter
	resultsSubmitted     prometheus.Counter
	matchmakingExhausted prometheus.Counter
	engineErrors         *prometheus.CounterVec

	// Latency metrics.
	ratingUpdateLatency   prometheus.Histogram
	matchmakingLatency    prometheus.Histogram
	standingsQueryLatency prometheus.Histogram

	// Gauges.
	pendingAssignments prometheus.Gauge
	teamsTracked       prometheus.Gauge
	judgesTracked      prometheus.Gauge

	// Standings index snapshot metrics.
	standingsSnapshotDuration prometheus.Histogram
	standingsSnapshotCount    prometheus.Counter
	standingsSnapshotLastUnix prometheus.Gauge

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics.
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var (
	customRegistry = prometheus.NewRegistry()
	globalManager  *Manager
)

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "verdict",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.assignmentsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "assignments_created_total",
		Help:      "Total number of pending assignments created by the matchmaker",
	})

	m.assignmentsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "assignments_skipped_total",
		Help:      "Total number of assignments skipped by judges",
	})

	m.votesRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_recorded_total",
		Help:      "Total number of pairwise votes recorded",
	})

	m.resultsSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_submitted_total",
		Help:      "Total number of criteria results submitted",
	})

	m.matchmakingExhausted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matchmaking_exhausted_total",
		Help:      "Times the matchmaker found no eligible team for a judge",
	})

	m.engineErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Engine errors by operation and kind",
	}, []string{"operation", "kind"})

	m.ratingUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_update_duration_milliseconds",
		Help:      "Latency of applying a vote to both team ratings",
		Buckets:   m.histogramBuckets,
	})

	m.matchmakingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matchmaking_duration_milliseconds",
		Help:      "Latency of selecting the next team for a judge",
		Buckets:   m.histogramBuckets,
	})

	m.standingsQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "standings_query_duration_milliseconds",
		Help:      "Latency of standings queries",
		Buckets:   m.histogramBuckets,
	})

	m.pendingAssignments = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_assignments",
		Help:      "Assignments currently in the pending state",
	})

	m.teamsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "teams_tracked",
		Help:      "Teams known to the engine",
	})

	m.judgesTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "judges_tracked",
		Help:      "Judges known to the engine",
	})

	m.standingsSnapshotDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "standings_snapshot_rebuild_duration_milliseconds",
		Help:      "Time to rebuild a standings snapshot",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
	})

	m.standingsSnapshotCount = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "standings_snapshot_total",
		Help:      "Number of standings snapshots published",
	})

	m.standingsSnapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "standings_snapshot_last_unix",
		Help:      "Unix timestamp of the last standings snapshot",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration by endpoint, method and status code",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"endpoint", "method", "status"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutine_count",
		Help:      "Number of goroutines",
	})
}

// Engine metric helpers.

// RecordAssignmentCreated increments the assignments-created counter.
func RecordAssignmentCreated() {
	globalManager.assignmentsCreated.Inc()
}

// RecordAssignmentSkipped increments the assignments-skipped counter.
func RecordAssignmentSkipped() {
	globalManager.assignmentsSkipped.Inc()
}

// RecordVoteRecorded increments the votes-recorded counter.
func RecordVoteRecorded() {
	globalManager.votesRecorded.Inc()
}

// RecordResultSubmitted increments the results-submitted counter.
func RecordResultSubmitted() {
	globalManager.resultsSubmitted.Inc()
}

// RecordMatchmakingExhausted increments the no-eligible-teams counter.
func RecordMatchmakingExhausted() {
	globalManager.matchmakingExhausted.Inc()
}

// RecordEngineError increments the engine error counter for an operation/kind pair.
func RecordEngineError(operation, kind string) {
	globalManager.engineErrors.WithLabelValues(operation, kind).Inc()
}

// RecordRatingUpdateLatency records the latency of a rating update in milliseconds.
func RecordRatingUpdateLatency(latencyMs float64) {
	globalManager.ratingUpdateLatency.Observe(latencyMs)
}

// RecordMatchmakingLatency records the latency of a matchmaking pass in milliseconds.
func RecordMatchmakingLatency(latencyMs float64) {
	globalManager.matchmakingLatency.Observe(latencyMs)
}

// RecordStandingsQueryLatency records standings query latency in milliseconds.
func RecordStandingsQueryLatency(latencyMs float64) {
	globalManager.standingsQueryLatency.Observe(latencyMs)
}

// UpdatePendingAssignments sets the pending assignments gauge.
func UpdatePendingAssignments(count int) {
	globalManager.pendingAssignments.Set(float64(count))
}

// UpdateTeamsTracked sets the teams gauge.
func UpdateTeamsTracked(count int) {
	globalManager.teamsTracked.Set(float64(count))
}

// UpdateJudgesTracked sets the judges gauge.
func UpdateJudgesTracked(count int) {
	globalManager.judgesTracked.Set(float64(count))
}

// Standings snapshot helpers.

// RecordStandingsSnapshotDuration records a snapshot rebuild duration in milliseconds.
func RecordStandingsSnapshotDuration(ms float64) {
	globalManager.standingsSnapshotDuration.Observe(ms)
}

// IncrementStandingsSnapshotCount increments the snapshot counter.
func IncrementStandingsSnapshotCount() {
	globalManager.standingsSnapshotCount.Inc()
}

// UpdateStandingsSnapshotLastUnix sets the last snapshot timestamp.
func UpdateStandingsSnapshotLastUnix(ts float64) {
	globalManager.standingsSnapshotLastUnix.Set(ts)
}

// HTTP helpers.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

// System helpers.

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// Registry returns the custom registry backing the global manager.
func Registry() *prometheus.Registry {
	return customRegistry
}

// Handler returns an http.Handler serving the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
